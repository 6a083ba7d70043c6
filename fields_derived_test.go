package marshal_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/marshal"
)

type person struct {
	First string `json:"first"`
	Last  string `json:"last"`
	ID    int    `json:"id"`
}

type badge struct{ label string }

func (b badge) MarshalFields() map[string]any { return map[string]any{"label": b.label} }

func TestFormattedString(t *testing.T) {
	f := marshal.FormattedString("{first} {last}")

	v, err := f.Output(marshal.Name("full"), map[string]any{"first": "Ann", "last": "Lee"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", v)

	v, err = f.Output(marshal.Name("full"), person{First: "Bo", Last: "Kim"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bo Kim", v)

	v, err = f.Output(marshal.Name("full"), &person{First: "Cy", Last: "Ng"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cy Ng", v)
}

type event struct {
	Title string    `json:"title"`
	When  time.Time `json:"when"`
	Venue *venue    `json:"venue"`
	Code  string    `marshal:"ref" json:"code"`
}

type venue struct {
	City string `json:"city"`
}

type keynote struct {
	event
	Speaker string `json:"speaker"`
}

func TestFieldMap_Structs(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := event{Title: "t", When: when, Venue: &venue{City: "Oslo"}, Code: "X1"}

	m, err := marshal.FieldMap(ev)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "t", "when": when, "venue": venue{City: "Oslo"}, "ref": "X1"}, m)

	m, err = marshal.FieldMap(keynote{event: event{Title: "t"}, Speaker: "ann"})
	require.NoError(t, err)
	assert.Equal(t, "t", m["title"])
	assert.Equal(t, "ann", m["speaker"])
	assert.Nil(t, m["venue"])
	assert.NotContains(t, m, "event")
}

func TestFormattedString_StructValues(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := keynote{event: event{Title: "t", When: when, Venue: &venue{City: "Oslo"}, Code: "X1"}, Speaker: "ann"}

	v, err := marshal.FormattedString("{title} at {when} in {venue.city} ({ref}) by {speaker}").Format(ev)
	require.NoError(t, err)
	assert.Equal(t, "t at 2024-01-02 03:04:05 +0000 UTC in Oslo (X1) by ann", v)
}

func TestFormattedString_EscapesDottedAndNil(t *testing.T) {
	v, err := marshal.FormattedString("{{literal}} {user.name}!").Format(map[string]any{"user": map[string]any{"name": "ann"}})
	require.NoError(t, err)
	assert.Equal(t, "{literal} ann!", v)

	v, err = marshal.FormattedString("[{a}]").Format(map[string]any{"a": nil})
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = marshal.FormattedString("<{label}>").Format(badge{label: "gold"})
	require.NoError(t, err)
	assert.Equal(t, "<gold>", v)
}

func TestFormattedString_MissingPlaceholder(t *testing.T) {
	_, err := marshal.FormattedString("{first} {middle}").Output(marshal.Name("full"), map[string]any{"first": "Ann"}, nil)
	me := requireCode(t, err, marshal.CodeTemplate)
	assert.Equal(t, "full", me.Key)
}

func TestFormattedString_InputPassesThrough(t *testing.T) {
	v, err := marshal.FormattedString("{a}").Input(marshal.Name("full"), map[string]any{"full": "raw"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "raw", v)
}

func TestFormattedString_BadTemplatesFailAtBuild(t *testing.T) {
	for _, tpl := range []string{"{a", "a}", "{}", "{a!r}", "{a:>4}"} {
		_, err := marshal.NewSchema().Field("f", marshal.FormattedString(tpl)).Build()
		requireCode(t, err, marshal.CodeContract)
	}
}

func TestURL(t *testing.T) {
	var gotEndpoint string
	var gotParams map[string]any
	resolver := marshal.EndpointResolverFunc(func(endpoint string, params map[string]any) (string, error) {
		gotEndpoint, gotParams = endpoint, params
		return "https://api.example.com/users/7?expand=1", nil
	})
	f := marshal.URL("user", resolver)

	v, err := f.Output(marshal.Name("href"), person{ID: 7}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/users/7", v)
	assert.Equal(t, "user", gotEndpoint)
	assert.Equal(t, 7, gotParams["id"])
	assert.Equal(t, "user", f.Endpoint())
}

func TestURL_ResolverFailureIsRouteError(t *testing.T) {
	f := marshal.URL("nope", marshal.EndpointResolverFunc(func(string, map[string]any) (string, error) {
		return "", errors.New("no such endpoint")
	}))
	_, err := f.Output(marshal.Name("href"), map[string]any{}, nil)
	me := requireCode(t, err, marshal.CodeRoute)
	assert.Equal(t, "href", me.Key)

	_, err = f.Output(marshal.Name("href"), nil, nil)
	requireCode(t, err, marshal.CodeRoute)
}

func TestURL_NilResolverIsContractError(t *testing.T) {
	_, err := marshal.NewSchema().Field("href", marshal.URL("user", nil)).Build()
	requireCode(t, err, marshal.CodeContract)
}

func TestDateTime_Output(t *testing.T) {
	f := marshal.DateTime()
	tokyo := time.FixedZone("JST", 9*60*60)
	at := time.Date(2025, 1, 1, 9, 0, 0, 0, tokyo)

	v, err := f.Output(marshal.Name("at"), map[string]any{"at": at}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", v)

	v, err = f.Output(marshal.Name("at"), map[string]any{"at": &at}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", v)

	v, err = f.Output(marshal.Name("at"), map[string]any{}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = f.Output(marshal.Name("at"), map[string]any{"at": "yesterday"}, nil)
	requireCode(t, err, marshal.CodeInvalidType)
}

func TestDateTime_Input(t *testing.T) {
	f := marshal.DateTime()

	v, err := f.Input(marshal.Name("at"), map[string]any{"at": "2025-01-01T09:00:00+09:00"}, nil)
	require.NoError(t, err)
	assertUTC(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), v)

	v, err = f.Input(marshal.Name("at"), map[string]any{"at": "2025-01-02 15:04:05"}, nil)
	require.NoError(t, err)
	assertUTC(t, time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC), v)

	v, err = f.Input(marshal.Name("at"), map[string]any{"at": ""}, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = marshal.DateTime(marshal.InputRequired()).Input(marshal.Name("at"), map[string]any{"at": "  "}, nil)
	requireCode(t, err, marshal.CodeRequired)

	_, err = f.Input(marshal.Name("at"), map[string]any{"at": "not a date"}, nil)
	requireCode(t, err, marshal.CodeInvalidValue)
}

func assertUTC(t *testing.T, want time.Time, got any) {
	t.Helper()
	tm, ok := got.(time.Time)
	require.True(t, ok, "want time.Time, got %T", got)
	assert.True(t, want.Equal(tm), "want %s, got %s", want, tm)
	assert.Equal(t, time.UTC, tm.Location())
}
