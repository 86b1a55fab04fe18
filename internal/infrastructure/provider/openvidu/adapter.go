package openvidu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	apperrors "github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/errors"

	"go.uber.org/zap"
)

const (
	sessionsPath   = "/openvidu/api/sessions"
	recordingsPath = "/openvidu/api/recordings"
	configPath     = "/openvidu/api/config"
)

// Adapter talks to an OpenVidu deployment over its REST API using basic
// auth. It implements ports.ProviderAdapter and the optional
// ports.AdvancedRecording capability.
type Adapter struct {
	baseURL  string
	secret   string
	tokenTTL time.Duration
	client   *http.Client
	logger   *zap.SugaredLogger
}

// New creates an OpenVidu adapter for the deployment at baseURL.
func New(baseURL, secret string, tokenTTL time.Duration, logger *zap.SugaredLogger) *Adapter {
	return &Adapter{
		baseURL:  baseURL,
		secret:   secret,
		tokenTTL: tokenTTL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (a *Adapter) Name() string { return "openvidu" }

// IsHealthy hits the server config endpoint. Auth errors still mean the
// platform is reachable.
func (a *Adapter) IsHealthy(ctx context.Context) bool {
	status, err := a.do(ctx, http.MethodGet, configPath, nil, nil)
	if err != nil {
		return false
	}
	return status < 500
}

type sessionResponse struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionId"`
	CreatedAt   int64  `json:"createdAt"`
	Connections struct {
		Content []connectionResponse `json:"content"`
	} `json:"connections"`
}

type connectionResponse struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	ServerData string `json:"serverData"`
	CreatedAt  int64  `json:"createdAt"`
	Token      string `json:"token"`
}

type recordingResponse struct {
	ID        string  `json:"id"`
	SessionID string  `json:"sessionId"`
	Status    string  `json:"status"`
	URL       string  `json:"url"`
	Size      int64   `json:"size"`
	Duration  float64 `json:"duration"`
	CreatedAt int64   `json:"createdAt"`
}

// StartSession creates the remote session if needed and returns it. A 409
// from the create call means another caller won the race; the session is
// then fetched instead, so the operation stays idempotent.
func (a *Adapter) StartSession(ctx context.Context, roomID string, opts ports.RoomOptions) (*domain.RemoteRoom, error) {
	room, err := a.GetSession(ctx, roomID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, domain.ErrRoomNotFound) {
		return nil, err
	}

	body := map[string]interface{}{
		"customSessionId": roomID,
		"mediaMode":       opts.MediaMode,
		"recordingMode":   opts.RecordingMode,
		"defaultRecordingProperties": map[string]interface{}{
			"outputMode": opts.OutputMode,
			"resolution": opts.Resolution,
			"frameRate":  opts.FrameRate,
		},
	}

	var resp sessionResponse
	status, err := a.do(ctx, http.MethodPost, sessionsPath, body, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return remoteRoom(&resp), nil
	case http.StatusConflict:
		return a.GetSession(ctx, roomID)
	}
	return nil, a.statusError("create session", status)
}

func (a *Adapter) GetSession(ctx context.Context, roomID string) (*domain.RemoteRoom, error) {
	var resp sessionResponse
	status, err := a.do(ctx, http.MethodGet, sessionsPath+"/"+roomID, nil, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return remoteRoom(&resp), nil
	case http.StatusNotFound:
		return nil, domain.ErrRoomNotFound
	}
	return nil, a.statusError("get session", status)
}

func (a *Adapter) EndSession(ctx context.Context, roomID string) error {
	status, err := a.do(ctx, http.MethodDelete, sessionsPath+"/"+roomID, nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrRoomNotFound
	}
	return a.statusError("end session", status)
}

// GenerateToken issues a WEBRTC connection into the session. Clinicians
// connect as publishers, patients as subscribers; display metadata rides
// along as serverData so the UI can label tiles without another lookup.
func (a *Adapter) GenerateToken(ctx context.Context, req ports.TokenRequest) (*domain.MeetingCredential, error) {
	role := "SUBSCRIBER"
	if req.Role == domain.RoleDoctor {
		role = "PUBLISHER"
	}

	serverData, _ := json.Marshal(map[string]interface{}{
		"user_id":      req.UserID,
		"role":         req.Role,
		"display_name": req.DisplayName,
		"metadata":     req.Metadata,
	})

	body := map[string]interface{}{
		"type": "WEBRTC",
		"role": role,
		"data": string(serverData),
	}

	var resp connectionResponse
	status, err := a.do(ctx, http.MethodPost, sessionsPath+"/"+req.RoomID+"/connection", body, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrRoomNotFound
	default:
		return nil, a.statusError("create connection", status)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = a.tokenTTL
	}
	return &domain.MeetingCredential{
		Token:      resp.Token,
		RoomID:     req.RoomID,
		RoomName:   req.RoomID,
		MeetingURL: fmt.Sprintf("%s/session/%s", a.baseURL, req.RoomID),
		ExpiresAt:  time.Now().Add(ttl),
	}, nil
}

func (a *Adapter) StartRecording(ctx context.Context, roomID string) (*domain.Recording, error) {
	body := map[string]interface{}{
		"session":  roomID,
		"hasAudio": true,
		"hasVideo": true,
	}
	var resp recordingResponse
	status, err := a.do(ctx, http.MethodPost, recordingsPath+"/start", body, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return recording(&resp), nil
	case http.StatusNotFound:
		return nil, domain.ErrRoomNotFound
	}
	return nil, a.statusError("start recording", status)
}

func (a *Adapter) StopRecording(ctx context.Context, recordingID string) (*domain.Recording, error) {
	var resp recordingResponse
	status, err := a.do(ctx, http.MethodPost, recordingsPath+"/stop/"+recordingID, nil, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return recording(&resp), nil
	case http.StatusNotFound:
		return nil, domain.ErrRecordingNotFound
	}
	return nil, a.statusError("stop recording", status)
}

func (a *Adapter) ListRecordings(ctx context.Context, roomID string) ([]*domain.Recording, error) {
	var resp struct {
		Items []recordingResponse `json:"items"`
	}
	status, err := a.do(ctx, http.MethodGet, recordingsPath, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, a.statusError("list recordings", status)
	}

	var out []*domain.Recording
	for i := range resp.Items {
		if roomID == "" || resp.Items[i].SessionID == roomID {
			out = append(out, recording(&resp.Items[i]))
		}
	}
	return out, nil
}

func (a *Adapter) GetParticipants(ctx context.Context, roomID string) ([]*domain.RemoteParticipant, error) {
	var resp sessionResponse
	status, err := a.do(ctx, http.MethodGet, sessionsPath+"/"+roomID, nil, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrRoomNotFound
	default:
		return nil, a.statusError("get participants", status)
	}

	participants := make([]*domain.RemoteParticipant, 0, len(resp.Connections.Content))
	for _, conn := range resp.Connections.Content {
		p := &domain.RemoteParticipant{
			ConnectionID: conn.ID,
			Role:         conn.Role,
		}
		if conn.CreatedAt > 0 {
			t := time.UnixMilli(conn.CreatedAt)
			p.JoinedAt = &t
		}
		var data struct {
			UserID domain.UserID `json:"user_id"`
		}
		if json.Unmarshal([]byte(conn.ServerData), &data) == nil {
			p.UserID = data.UserID
		}
		participants = append(participants, p)
	}
	return participants, nil
}

func (a *Adapter) KickParticipant(ctx context.Context, roomID, connectionID string) error {
	status, err := a.do(ctx, http.MethodDelete, sessionsPath+"/"+roomID+"/connection/"+connectionID, nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrRoomNotFound
	}
	return a.statusError("kick participant", status)
}

// GetRecording implements ports.AdvancedRecording.
func (a *Adapter) GetRecording(ctx context.Context, recordingID string) (*domain.Recording, error) {
	var resp recordingResponse
	status, err := a.do(ctx, http.MethodGet, recordingsPath+"/"+recordingID, nil, &resp)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return recording(&resp), nil
	case http.StatusNotFound:
		return nil, domain.ErrRecordingNotFound
	}
	return nil, a.statusError("get recording", status)
}

// DeleteRecording implements ports.AdvancedRecording.
func (a *Adapter) DeleteRecording(ctx context.Context, recordingID string) error {
	status, err := a.do(ctx, http.MethodDelete, recordingsPath+"/"+recordingID, nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrRecordingNotFound
	}
	return a.statusError("delete recording", status)
}

// do performs one REST call. Transport failures classify as connection
// errors, everything else is handed back as the raw status for the caller
// to interpret.
func (a *Adapter) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, apperrors.NewInternalError(fmt.Sprintf("marshaling %s request: %v", path, err))
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, apperrors.NewInternalError(fmt.Sprintf("building %s request: %v", path, err))
	}
	req.SetBasicAuth("OPENVIDUAPP", a.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, apperrors.NewConnectionError("openvidu unreachable", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, apperrors.NewServerError("decoding openvidu response", err)
		}
	}
	return resp.StatusCode, nil
}

func (a *Adapter) statusError(op string, status int) error {
	if status >= 500 {
		return apperrors.NewServerError(fmt.Sprintf("openvidu %s returned %d", op, status), nil)
	}
	return apperrors.NewServiceUnavailableError(fmt.Sprintf("openvidu %s returned %d", op, status))
}

func remoteRoom(resp *sessionResponse) *domain.RemoteRoom {
	id := resp.ID
	if id == "" {
		id = resp.SessionID
	}
	return &domain.RemoteRoom{
		ID:        id,
		Name:      id,
		CreatedAt: time.UnixMilli(resp.CreatedAt),
	}
}

func recording(resp *recordingResponse) *domain.Recording {
	status := domain.RecordingStatus(resp.Status)
	switch resp.Status {
	case "starting", "started":
		status = domain.RecordingStarted
	case "stopped":
		status = domain.RecordingStopped
	case "ready":
		status = domain.RecordingReady
	case "failed":
		status = domain.RecordingFailed
	}
	return &domain.Recording{
		ID:              resp.ID,
		RoomID:          resp.SessionID,
		Status:          status,
		URL:             resp.URL,
		SizeBytes:       resp.Size,
		DurationSeconds: resp.Duration,
		CreatedAt:       time.UnixMilli(resp.CreatedAt),
	}
}
