package aicore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccastromar/aicore-agents/internal/metrics"
)

type fakeDirectory struct {
	candidates []Candidate
	err        error

	gotGroup    string
	gotScenario string
	calls       int
}

func (f *fakeDirectory) ListDeployments(ctx context.Context, resourceGroup, scenarioID string) ([]Candidate, error) {
	f.calls++
	f.gotGroup = resourceGroup
	f.gotScenario = scenarioID
	return f.candidates, f.err
}

func settings(name string) Settings {
	return Settings{
		ResourceGroup:  "rg1",
		ScenarioID:     DefaultScenarioID,
		DeploymentName: name,
		APIVersion:     DefaultAPIVersion,
	}
}

func TestResolveEndpoint_FirstCandidateWhenNameUnset(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{
		{Name: "a", DeploymentURL: "https://api.example/v2/inference/deployments/a/"},
		{Name: "b", DeploymentURL: "https://api.example/v2/inference/deployments/b/"},
	}}
	r := NewResolver(dir, nil)

	got, err := r.ResolveEndpoint(context.Background(), settings(""))
	require.NoError(t, err)
	assert.Equal(t, ResolvedDeployment{
		DeploymentName: "a",
		DeploymentURL:  "https://api.example/v2/inference/deployments/a/",
	}, got)
	assert.Equal(t, "rg1", dir.gotGroup)
	assert.Equal(t, "foundation-models", dir.gotScenario)
}

func TestResolveEndpoint_ExactMatchAnyPosition(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{
		{Name: "a", DeploymentURL: "https://x/deployments/a"},
		{Name: "b", DeploymentURL: "https://x/deployments/b"},
		{Name: "target", DeploymentURL: "https://x/deployments/d1"},
		{Name: "target", DeploymentURL: "https://x/deployments/d2"},
	}}
	r := NewResolver(dir, nil)

	got, err := r.ResolveEndpoint(context.Background(), settings("target"))
	require.NoError(t, err)
	assert.Equal(t, "target", got.DeploymentName)
	assert.Equal(t, "https://x/deployments/d1", got.DeploymentURL)
}

func TestResolveEndpoint_MatchIsCaseSensitive(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{
		{Name: "first", DeploymentURL: "https://x/deployments/first"},
		{Name: "Target", DeploymentURL: "https://x/deployments/target"},
	}}
	r := NewResolver(dir, nil)
	fallbacks := metrics.Resolutions.Value(map[string]string{"outcome": "fallback"})

	got, err := r.ResolveEndpoint(context.Background(), settings("target"))
	require.NoError(t, err)
	assert.Equal(t, fallbacks+1, metrics.Resolutions.Value(map[string]string{"outcome": "fallback"}))
	// no exact match: first candidate, configured name kept
	assert.Equal(t, "target", got.DeploymentName)
	assert.Equal(t, "https://x/deployments/first", got.DeploymentURL)
}

func TestResolveEndpoint_IDUsedWhenNameMissing(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{
		{ID: "d111", DeploymentURL: "https://x/deployments/d111"},
		{ID: "d222", DeploymentURL: "https://x/deployments/d222"},
	}}
	r := NewResolver(dir, nil)

	got, err := r.ResolveEndpoint(context.Background(), settings("d222"))
	require.NoError(t, err)
	assert.Equal(t, "https://x/deployments/d222", got.DeploymentURL)
}

func TestResolveEndpoint_NamePreferredOverID(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{
		{Name: "other", ID: "gpt", DeploymentURL: "https://x/deployments/one"},
		{Name: "gpt", ID: "zzz", DeploymentURL: "https://x/deployments/two"},
	}}
	r := NewResolver(dir, nil)

	got, err := r.ResolveEndpoint(context.Background(), settings("gpt"))
	require.NoError(t, err)
	assert.Equal(t, "https://x/deployments/two", got.DeploymentURL)
}

func TestResolveEndpoint_EmptyListing(t *testing.T) {
	for _, name := range []string{"", "wanted"} {
		r := NewResolver(&fakeDirectory{}, nil)
		_, err := r.ResolveEndpoint(context.Background(), settings(name))
		require.ErrorIs(t, err, ErrNoDeploymentFound)
		assert.Contains(t, err.Error(), "rg1")
		assert.Contains(t, err.Error(), "foundation-models")
	}
}

func TestResolveEndpoint_MissingURL(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{{Name: "a"}}}
	r := NewResolver(dir, nil)

	_, err := r.ResolveEndpoint(context.Background(), settings(""))
	require.ErrorIs(t, err, ErrMissingDeploymentURL)
}

func TestResolveEndpoint_NameInferenceFails(t *testing.T) {
	cases := map[string]string{
		"trailing deployments": "https://x/v2/inference/deployments",
		"no segment":           "https://x/v2/inference/models/abc",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			dir := &fakeDirectory{candidates: []Candidate{{ID: "abc", DeploymentURL: url}}}
			r := NewResolver(dir, nil)
			_, err := r.ResolveEndpoint(context.Background(), settings(""))
			require.ErrorIs(t, err, ErrDeploymentNameRequired)
		})
	}
}

func TestResolveEndpoint_ExplicitNameSkipsInference(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{{ID: "abc", DeploymentURL: "https://x/no/segment"}}}
	r := NewResolver(dir, nil)

	got, err := r.ResolveEndpoint(context.Background(), settings("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", got.DeploymentName)
}

func TestResolveEndpoint_InvalidSettings(t *testing.T) {
	dir := &fakeDirectory{}
	r := NewResolver(dir, nil)

	_, err := r.ResolveEndpoint(context.Background(), Settings{ScenarioID: "s"})
	require.ErrorIs(t, err, ErrInvalidSettings)
	_, err = r.ResolveEndpoint(context.Background(), Settings{ResourceGroup: "rg"})
	require.ErrorIs(t, err, ErrInvalidSettings)
	assert.Zero(t, dir.calls)
}

func TestResolveEndpoint_DirectoryError(t *testing.T) {
	boom := errors.New("boom")
	r := NewResolver(&fakeDirectory{err: boom}, nil)

	_, err := r.ResolveEndpoint(context.Background(), settings(""))
	require.ErrorIs(t, err, boom)
}

func TestResolveEndpoint_QueriesEveryCall(t *testing.T) {
	dir := &fakeDirectory{candidates: []Candidate{{Name: "a", DeploymentURL: "https://x/deployments/a"}}}
	r := NewResolver(dir, nil)

	for i := 0; i < 3; i++ {
		_, err := r.ResolveEndpoint(context.Background(), settings(""))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, dir.calls)
}

func TestInferDeploymentName(t *testing.T) {
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://host/v2/inference/resource/deployments/abc123/", "abc123", true},
		{"https://host/v2/inference/deployments/abc123", "abc123", true},
		{"https://host//deployments//abc123//chat", "abc123", true},
		{"https://host/deployments/first/deployments/second", "first", true},
		{"https://host/v2/inference/deployments", "", false},
		{"https://host/v2/inference/deployments/", "", false},
		{"https://host/v2/inference/models/abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := InferDeploymentName(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)

		again, _ := InferDeploymentName(tc.url)
		assert.Equal(t, got, again, tc.url)
	}
}

func TestIssueToken_StripsBearerPrefix(t *testing.T) {
	cases := map[string]string{
		"Bearer xyz":        "xyz",
		"xyz":               "xyz",
		"Bearer Bearer xyz": "Bearer xyz",
		"bearer xyz":        "bearer xyz",
	}
	for in, want := range cases {
		issuer := TokenIssuerFunc(func(ctx context.Context, rg string) (string, error) {
			assert.Equal(t, "rg1", rg)
			return in, nil
		})
		got, err := NewResolver(nil, issuer).IssueToken(context.Background(), settings(""))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIssueToken_PropagatesErrorVerbatim(t *testing.T) {
	boom := errors.New("auth server down")
	issuer := TokenIssuerFunc(func(ctx context.Context, rg string) (string, error) { return "", boom })

	_, err := NewResolver(nil, issuer).IssueToken(context.Background(), settings(""))
	assert.Same(t, boom, err)
}

func TestSettings_DefaultHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{"AI-Resource-Group": "rg1"}, settings("").DefaultHeaders())
}
