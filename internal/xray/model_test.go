package xray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"security", KindSecurity},
		{"Security", KindSecurity},
		{"License", KindLicense},
		{"Operational Risk", KindOperationalRisk},
		{"operational_risk", KindOperationalRisk},
		{"OPERATIONAL RISK", KindOperationalRisk},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseKind_Invalid(t *testing.T) {
	_, err := ParseKind("malware")
	assert.Error(t, err)
}

func TestFlatten_StampsContext(t *testing.T) {
	evt := &WebhookEvent{
		WatchName:  "w",
		PolicyName: "p",
		HostName:   "xray.example.com",
		Created:    "2024-01-15T10:00:00Z",
		Issues: []WebhookIssue{
			{Severity: "High", Type: "security", Summary: "one"},
			{Severity: "Low", Type: "License", Summary: "two", Created: "2024-02-01T00:00:00Z"},
		},
	}

	issues := evt.Flatten()
	require.Len(t, issues, 2)

	assert.Equal(t, "w", issues[0].WatchName)
	assert.Equal(t, "p", issues[0].PolicyName)
	assert.Equal(t, "xray.example.com", issues[0].HostName)
	// Event-level timestamp fills in when the issue has none.
	assert.Equal(t, "2024-01-15T10:00:00Z", issues[0].Created)
	// An issue-level timestamp wins.
	assert.Equal(t, "2024-02-01T00:00:00Z", issues[1].Created)
	assert.Equal(t, "two", issues[1].Summary)
}

func TestFlatten_Empty(t *testing.T) {
	evt := &WebhookEvent{WatchName: "w", PolicyName: "p"}
	assert.Empty(t, evt.Flatten())
}
