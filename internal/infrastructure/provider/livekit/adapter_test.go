package livekit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/domain"
	"github.com/Ishswami-Tech/HealthCareBackend-sub004/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret-test-secret-test-secret"

func newTestAdapter(t *testing.T, host string) *Adapter {
	t.Helper()
	return New(host, "api-key", testSecret, time.Hour, zaptest.NewLogger(t).Sugar())
}

func parseClaims(t *testing.T, token string) *accessClaims {
	t.Helper()
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil {
		t.Fatalf("parsing token: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token not valid")
	}
	return claims
}

func TestGenerateToken_DoctorCanPublish(t *testing.T) {
	adapter := newTestAdapter(t, "http://livekit")

	credential, err := adapter.GenerateToken(context.Background(), ports.TokenRequest{
		RoomID:      "room-1",
		UserID:      "doctor-1",
		Role:        domain.RoleDoctor,
		DisplayName: "Dr. Example",
		TTL:         time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	claims := parseClaims(t, credential.Token)
	if claims.Issuer != "api-key" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
	if claims.Subject != "doctor-1" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Video.Room != "room-1" || !claims.Video.RoomJoin {
		t.Errorf("video grant = %+v", claims.Video)
	}
	if claims.Video.CanPublish == nil || !*claims.Video.CanPublish {
		t.Error("doctor must be allowed to publish")
	}
	if claims.Name != "Dr. Example" {
		t.Errorf("Name = %q", claims.Name)
	}
}

func TestGenerateToken_PatientCannotPublish(t *testing.T) {
	adapter := newTestAdapter(t, "http://livekit")

	credential, err := adapter.GenerateToken(context.Background(), ports.TokenRequest{
		RoomID: "room-1",
		UserID: "patient-1",
		Role:   domain.RolePatient,
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	claims := parseClaims(t, credential.Token)
	if claims.Video.CanPublish == nil || *claims.Video.CanPublish {
		t.Error("patient must not be allowed to publish")
	}
	if claims.Video.CanSubscribe == nil || !*claims.Video.CanSubscribe {
		t.Error("patient must be allowed to subscribe")
	}
}

func TestGenerateToken_TTLFallsBackToDefault(t *testing.T) {
	adapter := newTestAdapter(t, "http://livekit")

	credential, err := adapter.GenerateToken(context.Background(), ports.TokenRequest{
		RoomID: "room-1", UserID: "u1", Role: domain.RolePatient,
	})
	if err != nil {
		t.Fatal(err)
	}

	claims := parseClaims(t, credential.Token)
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 55*time.Minute || remaining > 65*time.Minute {
		t.Errorf("expected roughly the default 1h TTL, got %v", remaining)
	}
}

func TestStartSession_CallsCreateRoomWithAdminToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "CreateRoom") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			t.Fatalf("missing bearer token: %q", auth)
		}
		claims := parseClaims(t, strings.TrimPrefix(auth, "Bearer "))
		if !claims.Video.RoomCreate || !claims.Video.RoomAdmin {
			t.Errorf("admin grant missing: %+v", claims.Video)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"sid": "RM_1", "name": "room-1", "creation_time": "1700000000",
		})
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	room, err := adapter.StartSession(context.Background(), "room-1", ports.RoomOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if room.ID != "RM_1" || room.Name != "room-1" {
		t.Errorf("room = %+v", room)
	}
}

func TestGetSession_NotFoundWhenAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"rooms": []interface{}{}})
	}))
	defer srv.Close()

	adapter := newTestAdapter(t, srv.URL)
	_, err := adapter.GetSession(context.Background(), "nope")
	if err != domain.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestEgressStatusMapping(t *testing.T) {
	cases := map[string]domain.RecordingStatus{
		"EGRESS_ACTIVE":   domain.RecordingStarted,
		"EGRESS_ENDING":   domain.RecordingStopped,
		"EGRESS_COMPLETE": domain.RecordingReady,
		"EGRESS_FAILED":   domain.RecordingFailed,
	}
	for egressStatus, want := range cases {
		rec := egressRecording(&egressResponse{EgressID: "eg-1", Status: egressStatus})
		if rec.Status != want {
			t.Errorf("status %q mapped to %q, want %q", egressStatus, rec.Status, want)
		}
	}
}
