package workflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/models"
)

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload []byte, _ string) error {
	if p.err != nil {
		return p.err
	}
	env, err := events.DecodeEnvelope(payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.envelopes))
	for _, e := range p.envelopes {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) decision(t *testing.T, i int) events.Decision {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	var d events.Decision
	if err := json.Unmarshal(p.envelopes[i].Data, &d); err != nil {
		t.Fatalf("decode decision payload: %v", err)
	}
	return d
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(t *testing.T, db database.DatabaseInterface, email string, role models.Role, orgID string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Role: role, OrganizationID: orgID}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func seedOrg(t *testing.T, db database.DatabaseInterface, id, owner string, status models.OrganizationStatus) *models.Organization {
	t.Helper()
	org := &models.Organization{ID: id, Name: "Org " + id, OwnerID: owner, Status: status}
	if err := db.CreateOrganization(context.Background(), org); err != nil {
		t.Fatalf("seed organization %s: %v", id, err)
	}
	return org
}

func seedEvent(t *testing.T, db database.DatabaseInterface, id, orgID string, status models.EventStatus) *models.Event {
	t.Helper()
	ev := &models.Event{ID: id, Name: "Event " + id, OrganizationID: orgID, Status: status, CreatedBy: "officer"}
	if err := db.CreateEvent(context.Background(), ev); err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
	return ev
}
