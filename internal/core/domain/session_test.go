package domain

import "testing"

func TestSessionStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionScheduled, SessionActive, true},
		{SessionScheduled, SessionCancelled, true},
		{SessionScheduled, SessionEnded, false},
		{SessionActive, SessionEnded, true},
		{SessionActive, SessionCancelled, true},
		{SessionActive, SessionScheduled, false},
		{SessionEnded, SessionActive, false},
		{SessionEnded, SessionCancelled, false},
		{SessionCancelled, SessionActive, false},
		{SessionCancelled, SessionEnded, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSessionStatusIsTerminal(t *testing.T) {
	if SessionScheduled.IsTerminal() || SessionActive.IsTerminal() {
		t.Error("scheduled and active must not be terminal")
	}
	if !SessionEnded.IsTerminal() || !SessionCancelled.IsTerminal() {
		t.Error("ended and cancelled must be terminal")
	}
}

func TestConsultationStatusForwardOnly(t *testing.T) {
	cases := []struct {
		from, to ConsultationStatus
		want     bool
	}{
		{ConsultationWaiting, ConsultationStarting, true},
		{ConsultationWaiting, ConsultationActive, true},
		{ConsultationWaiting, ConsultationEnded, true},
		{ConsultationStarting, ConsultationWaiting, false},
		{ConsultationActive, ConsultationActive, false},
		{ConsultationActive, ConsultationEnding, true},
		{ConsultationEnding, ConsultationActive, false},
		{ConsultationEnded, ConsultationWaiting, false},
		{"bogus", ConsultationActive, false},
		{ConsultationActive, "bogus", false},
	}

	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsRemoteVideo(t *testing.T) {
	cases := []struct {
		name string
		typ  interface{}
		want bool
	}{
		{"video", "video", true},
		{"remote_video", "remote_video", true},
		{"teleconsultation uppercase", "TELECONSULTATION", true},
		{"online padded", "  online ", true},
		{"in person", "in_person", false},
		{"empty string", "", false},
		{"non-string", 42, false},
		{"nil value", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Appointment{ID: "apt-1", Type: tc.typ}
			if got := a.IsRemoteVideo(); got != tc.want {
				t.Errorf("IsRemoteVideo(%v) = %v, want %v", tc.typ, got, tc.want)
			}
		})
	}

	var missing *Appointment
	if missing.IsRemoteVideo() {
		t.Error("nil appointment must not be remote video")
	}
}

func TestNormalizeIssueKind(t *testing.T) {
	cases := map[string]IssueKind{
		"audio":      IssueAudio,
		"video":      IssueVideo,
		"connection": IssueConnection,
		"other":      IssueOther,
		"lag":        IssueOther,
		"":           IssueOther,
	}
	for in, want := range cases {
		if got := NormalizeIssueKind(in); got != want {
			t.Errorf("NormalizeIssueKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConsultationMetricsDerived(t *testing.T) {
	m := &ConsultationMetrics{
		AppointmentID: "apt-1",
		Participants: []ParticipantStatus{
			{UserID: "u1", IsOnline: true},
			{UserID: "u2", IsOnline: false},
			{UserID: "u3", IsOnline: true},
		},
		CurrentParticipants: 99, // stale input, must be recomputed
	}
	m.RecomputeDerived()

	if m.CurrentParticipants != 2 {
		t.Errorf("CurrentParticipants = %d, want 2", m.CurrentParticipants)
	}
	if p := m.Participant("u2"); p == nil || p.UserID != "u2" {
		t.Error("Participant lookup failed for u2")
	}
	if p := m.Participant("nope"); p != nil {
		t.Error("expected nil for unknown participant")
	}
}

func TestTechnicalIssueCounts(t *testing.T) {
	var c TechnicalIssueCounts
	c.Add(IssueAudio)
	c.Add(IssueAudio)
	c.Add(IssueConnection)
	c.Add("weird")

	if c.Audio != 2 || c.Connection != 1 || c.Other != 1 || c.Video != 0 {
		t.Errorf("unexpected counts: %+v", c)
	}
	if c.Total() != 4 {
		t.Errorf("Total() = %d, want 4", c.Total())
	}
}
