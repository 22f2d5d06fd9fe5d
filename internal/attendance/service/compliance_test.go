package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treehouse/internal/attendance/models"
	"treehouse/internal/attendance/store"
	"treehouse/internal/notify"
	rostermodels "treehouse/internal/roster/models"
	rosterstore "treehouse/internal/roster/store"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/tx"
	"treehouse/pkg/testutil"
)

func entry(p rostermodels.Participant) models.PresenceEntry {
	return models.PresenceEntry{Participant: p}
}

func TestEvaluate(t *testing.T) {
	household := domain.HouseholdID(1)
	otherHousehold := domain.HouseholdID(2)

	tests := []struct {
		name    string
		entries []models.PresenceEntry
		want    models.ComplianceStatus
	}{
		{
			name:    "empty facility",
			entries: nil,
			want:    models.ComplianceStatus{},
		},
		{
			name: "adults only",
			entries: []models.PresenceEntry{
				entry(testutil.Adult(1, domain.CapKeyholder)),
				entry(testutil.Adult(2)),
			},
			want: models.ComplianceStatus{
				AdultsPresent:      2,
				KeyholdersPresent:  1,
				KeyholderShortfall: true,
			},
		},
		{
			name: "minor accompanied by household adult",
			entries: []models.PresenceEntry{
				entry(testutil.InHousehold(testutil.Adult(1, domain.CapKeyholder), household)),
				entry(testutil.InHousehold(testutil.Adult(2, domain.CapKeyholder), otherHousehold)),
				entry(testutil.InHousehold(testutil.Minor(3, 12), household)),
			},
			want: models.ComplianceStatus{
				AdultsPresent:     2,
				MinorsPresent:     1,
				KeyholdersPresent: 2,
			},
		},
		{
			name: "unaccompanied minor with two adults is compliant",
			entries: []models.PresenceEntry{
				entry(testutil.Adult(1, domain.CapKeyholder)),
				entry(testutil.Adult(2, domain.CapKeyholder)),
				entry(testutil.InHousehold(testutil.Minor(3, 12), household)),
			},
			want: models.ComplianceStatus{
				AdultsPresent:       2,
				MinorsPresent:       1,
				UnaccompaniedMinors: 1,
				KeyholdersPresent:   2,
			},
		},
		{
			name: "unaccompanied minor with one adult violates",
			entries: []models.PresenceEntry{
				entry(testutil.Adult(1, domain.CapKeyholder)),
				entry(testutil.InHousehold(testutil.Minor(3, 12), household)),
			},
			want: models.ComplianceStatus{
				Violation:           true,
				AdultsPresent:       1,
				MinorsPresent:       1,
				UnaccompaniedMinors: 1,
				KeyholdersPresent:   1,
				KeyholderShortfall:  true,
			},
		},
		{
			name: "minor without household is always unaccompanied",
			entries: []models.PresenceEntry{
				entry(testutil.Adult(1, domain.CapKeyholder)),
				entry(testutil.Minor(3, 12)),
			},
			want: models.ComplianceStatus{
				Violation:           true,
				AdultsPresent:       1,
				MinorsPresent:       1,
				UnaccompaniedMinors: 1,
				KeyholdersPresent:   1,
				KeyholderShortfall:  true,
			},
		},
		{
			name: "missing date of birth counts as adult",
			entries: []models.PresenceEntry{
				entry(testutil.Adult(1, domain.CapKeyholder)),
				entry(rostermodels.Participant{ID: 4, Name: "No DOB"}),
				entry(testutil.Minor(3, 12)),
			},
			want: models.ComplianceStatus{
				AdultsPresent:       2,
				MinorsPresent:       1,
				UnaccompaniedMinors: 1,
				KeyholdersPresent:   1,
				KeyholderShortfall:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &models.PresenceSnapshot{Entries: tt.entries}
			got := Evaluate(snapshot, testutil.FixedTime)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckTwoDeepAlertsAndDebounces(t *testing.T) {
	ledger := store.NewInMemory()
	roster := rosterstore.NewInMemory()
	auditor := &captureEmitter{}
	sender := &captureSender{}
	svc := New(ledger, roster, tx.NewMemoryRunner(),
		WithAuditor(auditor),
		WithSender(sender),
	)

	keyholder := domain.ParticipantID(1)
	minor := domain.ParticipantID(2)
	board := domain.ParticipantID(3)
	roster.Seed(testutil.Adult(keyholder, domain.CapKeyholder))
	roster.Seed(testutil.Minor(minor, 13))
	roster.Seed(testutil.Adult(board, domain.CapBoardMember))

	ctx := testutil.Context()
	_, err := svc.ProcessScan(ctx, keyholder, "")
	require.NoError(t, err)
	_, err = svc.ProcessScan(ctx, minor, "")
	require.NoError(t, err)

	status, err := svc.CheckTwoDeep(ctx)
	require.NoError(t, err)
	assert.True(t, status.Violation)

	alerts := sender.byEvent(notify.EventTwoDeepViolation)
	require.Len(t, alerts, 1)
	assert.Equal(t, board, alerts[0].ParticipantID)
	assert.Len(t, auditor.byAction(audit.ActionSystemNotify), 1)

	// A second check inside the window reports the violation but stays quiet.
	status, err = svc.CheckTwoDeep(ctx)
	require.NoError(t, err)
	assert.True(t, status.Violation)
	assert.Len(t, sender.byEvent(notify.EventTwoDeepViolation), 1)
	assert.Len(t, auditor.byAction(audit.ActionSystemNotify), 1)
}

func TestCheckTwoDeepNoViolationNoAlert(t *testing.T) {
	ledger := store.NewInMemory()
	roster := rosterstore.NewInMemory()
	sender := &captureSender{}
	svc := New(ledger, roster, tx.NewMemoryRunner(), WithSender(sender))

	keyholder := domain.ParticipantID(1)
	roster.Seed(testutil.Adult(keyholder, domain.CapKeyholder))

	ctx := testutil.Context()
	_, err := svc.ProcessScan(ctx, keyholder, "")
	require.NoError(t, err)

	status, err := svc.CheckTwoDeep(ctx)
	require.NoError(t, err)
	assert.False(t, status.Violation)
	assert.Empty(t, sender.byEvent(notify.EventTwoDeepViolation))
}
