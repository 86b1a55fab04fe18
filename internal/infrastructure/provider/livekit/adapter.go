package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"
	apperrors "github.com/Ishswami-Tech/HealthCareBackend-sub004/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	roomServicePath = "/twirp/livekit.RoomService/"
	egressPath      = "/twirp/livekit.Egress/"
)

// Adapter targets a LiveKit deployment. Unlike OpenVidu, access tokens
// are minted locally by signing a JWT with the API secret; the server is
// only consulted for room and egress management.
type Adapter struct {
	host      string
	apiKey    string
	apiSecret []byte
	tokenTTL  time.Duration
	client    *http.Client
	logger    *zap.SugaredLogger
}

// New creates a LiveKit adapter for the deployment at host.
func New(host, apiKey, apiSecret string, tokenTTL time.Duration, logger *zap.SugaredLogger) *Adapter {
	return &Adapter{
		host:      host,
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		tokenTTL:  tokenTTL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (a *Adapter) Name() string { return "livekit" }

type videoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	RoomList     bool   `json:"roomList,omitempty"`
	RoomAdmin    bool   `json:"roomAdmin,omitempty"`
	RoomRecord   bool   `json:"roomRecord,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Video    videoGrant `json:"video"`
	Name     string     `json:"name,omitempty"`
	Metadata string     `json:"metadata,omitempty"`
}

func (a *Adapter) signToken(identity string, ttl time.Duration, grant videoGrant, name, metadata string) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video:    grant,
		Name:     name,
		Metadata: metadata,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.apiSecret)
}

// adminToken signs a short-lived management token for server API calls.
func (a *Adapter) adminToken() (string, error) {
	return a.signToken("consult-orchestrator", time.Minute, videoGrant{
		RoomCreate: true,
		RoomList:   true,
		RoomAdmin:  true,
		RoomRecord: true,
	}, "", "")
}

func (a *Adapter) IsHealthy(ctx context.Context) bool {
	_, _, err := a.rpc(ctx, roomServicePath+"ListRooms", map[string]interface{}{}, nil)
	return err == nil
}

type roomResponse struct {
	Sid          string `json:"sid"`
	Name         string `json:"name"`
	CreationTime int64  `json:"creation_time,string"`
}

func (a *Adapter) StartSession(ctx context.Context, roomID string, opts ports.RoomOptions) (*domain.RemoteRoom, error) {
	// CreateRoom is idempotent server-side: an existing name returns the
	// existing room.
	var resp roomResponse
	_, _, err := a.rpc(ctx, roomServicePath+"CreateRoom", map[string]interface{}{
		"name":             roomID,
		"empty_timeout":    600,
		"max_participants": 10,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &domain.RemoteRoom{
		ID:        resp.Sid,
		Name:      resp.Name,
		CreatedAt: time.Unix(resp.CreationTime, 0),
	}, nil
}

func (a *Adapter) GetSession(ctx context.Context, roomID string) (*domain.RemoteRoom, error) {
	var resp struct {
		Rooms []roomResponse `json:"rooms"`
	}
	_, _, err := a.rpc(ctx, roomServicePath+"ListRooms", map[string]interface{}{
		"names": []string{roomID},
	}, &resp)
	if err != nil {
		return nil, err
	}
	for _, room := range resp.Rooms {
		if room.Name == roomID {
			return &domain.RemoteRoom{
				ID:        room.Sid,
				Name:      room.Name,
				CreatedAt: time.Unix(room.CreationTime, 0),
			}, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

func (a *Adapter) EndSession(ctx context.Context, roomID string) error {
	_, _, err := a.rpc(ctx, roomServicePath+"DeleteRoom", map[string]interface{}{
		"room": roomID,
	}, nil)
	return err
}

// GenerateToken mints the access JWT locally; no server round trip is
// needed, the room is materialized on first join.
func (a *Adapter) GenerateToken(ctx context.Context, req ports.TokenRequest) (*domain.MeetingCredential, error) {
	ttl := req.TTL
	if ttl <= 0 {
		ttl = a.tokenTTL
	}

	canPublish := req.Role == domain.RoleDoctor
	canSubscribe := true
	metadata, _ := json.Marshal(map[string]interface{}{
		"user_id":  req.UserID,
		"role":     req.Role,
		"metadata": req.Metadata,
	})

	token, err := a.signToken(string(req.UserID), ttl, videoGrant{
		Room:         req.RoomID,
		RoomJoin:     true,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}, req.DisplayName, string(metadata))
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("signing access token: %v", err))
	}

	return &domain.MeetingCredential{
		Token:      token,
		RoomID:     req.RoomID,
		RoomName:   req.RoomID,
		MeetingURL: fmt.Sprintf("%s/rooms/%s", a.host, req.RoomID),
		ExpiresAt:  time.Now().Add(ttl),
	}, nil
}

type egressResponse struct {
	EgressID  string `json:"egress_id"`
	RoomName  string `json:"room_name"`
	Status    string `json:"status"`
	StartedAt int64  `json:"started_at,string"`
	File      struct {
		Filename string `json:"filename"`
		Location string `json:"location"`
		Size     int64  `json:"size,string"`
		Duration int64  `json:"duration,string"`
	} `json:"file"`
}

func (a *Adapter) StartRecording(ctx context.Context, roomID string) (*domain.Recording, error) {
	var resp egressResponse
	_, _, err := a.rpc(ctx, egressPath+"StartRoomCompositeEgress", map[string]interface{}{
		"room_name": roomID,
		"layout":    "speaker",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return egressRecording(&resp), nil
}

func (a *Adapter) StopRecording(ctx context.Context, recordingID string) (*domain.Recording, error) {
	var resp egressResponse
	_, _, err := a.rpc(ctx, egressPath+"StopEgress", map[string]interface{}{
		"egress_id": recordingID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return egressRecording(&resp), nil
}

func (a *Adapter) ListRecordings(ctx context.Context, roomID string) ([]*domain.Recording, error) {
	var resp struct {
		Items []egressResponse `json:"items"`
	}
	_, _, err := a.rpc(ctx, egressPath+"ListEgress", map[string]interface{}{
		"room_name": roomID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Recording, 0, len(resp.Items))
	for i := range resp.Items {
		out = append(out, egressRecording(&resp.Items[i]))
	}
	return out, nil
}

func (a *Adapter) GetParticipants(ctx context.Context, roomID string) ([]*domain.RemoteParticipant, error) {
	var resp struct {
		Participants []struct {
			Sid      string `json:"sid"`
			Identity string `json:"identity"`
			JoinedAt int64  `json:"joined_at,string"`
		} `json:"participants"`
	}
	_, status, err := a.rpc(ctx, roomServicePath+"ListParticipants", map[string]interface{}{
		"room": roomID,
	}, &resp)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	out := make([]*domain.RemoteParticipant, 0, len(resp.Participants))
	for _, p := range resp.Participants {
		rp := &domain.RemoteParticipant{
			ConnectionID: p.Sid,
			UserID:       domain.UserID(p.Identity),
		}
		if p.JoinedAt > 0 {
			t := time.Unix(p.JoinedAt, 0)
			rp.JoinedAt = &t
		}
		out = append(out, rp)
	}
	return out, nil
}

func (a *Adapter) KickParticipant(ctx context.Context, roomID, connectionID string) error {
	_, _, err := a.rpc(ctx, roomServicePath+"RemoveParticipant", map[string]interface{}{
		"room":     roomID,
		"identity": connectionID,
	}, nil)
	return err
}

// rpc performs one twirp-style JSON call with a fresh admin token.
func (a *Adapter) rpc(ctx context.Context, path string, body, out interface{}) (json.RawMessage, int, error) {
	token, err := a.adminToken()
	if err != nil {
		return nil, 0, apperrors.NewInternalError(fmt.Sprintf("signing admin token: %v", err))
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(fmt.Sprintf("marshaling %s request: %v", path, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, apperrors.NewInternalError(fmt.Sprintf("building %s request: %v", path, err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, apperrors.NewConnectionError("livekit unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, apperrors.NewServerError(fmt.Sprintf("livekit %s returned %d", path, resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, apperrors.NewServiceUnavailableError(fmt.Sprintf("livekit %s returned %d", path, resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, resp.StatusCode, apperrors.NewServerError("decoding livekit response", err)
		}
	}
	return nil, resp.StatusCode, nil
}

func egressRecording(resp *egressResponse) *domain.Recording {
	status := domain.RecordingStarted
	switch resp.Status {
	case "EGRESS_COMPLETE":
		status = domain.RecordingReady
	case "EGRESS_ENDING", "EGRESS_LIMIT_REACHED":
		status = domain.RecordingStopped
	case "EGRESS_FAILED", "EGRESS_ABORTED":
		status = domain.RecordingFailed
	}
	return &domain.Recording{
		ID:              resp.EgressID,
		RoomID:          resp.RoomName,
		Status:          status,
		URL:             resp.File.Location,
		SizeBytes:       resp.File.Size,
		DurationSeconds: float64(resp.File.Duration) / float64(time.Second),
		CreatedAt:       time.Unix(0, resp.StartedAt),
	}
}
