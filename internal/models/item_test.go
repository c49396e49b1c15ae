package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyItem(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		marker string
		want   ItemRef
	}{
		{name: "digits are an activity", raw: "42", marker: "s", want: ItemRef{Kind: ItemActivity, ActivityID: 42}},
		{name: "marker plus number is a section", raw: "s3", marker: "s", want: ItemRef{Kind: ItemSection, Section: 3}},
		{name: "component name is an activity class", raw: "mod_quiz", marker: "s", want: ItemRef{Kind: ItemActivityClass, Component: "mod_quiz"}},
		{name: "marker with trailing text stays a class", raw: "survey", marker: "s", want: ItemRef{Kind: ItemActivityClass, Component: "survey"}},
		{name: "surrounding whitespace is trimmed", raw: "  7 ", marker: "s", want: ItemRef{Kind: ItemActivity, ActivityID: 7}},
		{name: "empty marker never matches sections", raw: "s3", marker: "", want: ItemRef{Kind: ItemActivityClass, Component: "s3"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ClassifyItem(tc.raw, tc.marker)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyItemRejectsEmpty(t *testing.T) {
	_, err := ClassifyItem("   ", "s")
	assert.Error(t, err)
}

func TestParseUserRef(t *testing.T) {
	user, err := ParseUserRef("15")
	require.NoError(t, err)
	assert.Equal(t, UserRef{ID: 15}, user)

	group, err := ParseUserRef("g4")
	require.NoError(t, err)
	assert.Equal(t, UserRef{Group: true, ID: 4}, group)

	_, err = ParseUserRef("gx")
	assert.Error(t, err)

	_, err = ParseUserRef("bogus")
	assert.Error(t, err)
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, "Reads", ActionLabel(ActionRead))
	assert.Equal(t, "Writes", ActionLabel(ActionWrite))
	assert.Equal(t, "All", ActionLabel(ActionAll))
	assert.Equal(t, "\\core\\event\\course_viewed", ActionLabel("\\core\\event\\course_viewed"))
}

func TestFilterSpecActionHelpers(t *testing.T) {
	assert.True(t, FilterSpec{}.CoarseActions(), "empty actions default to the coarse pair")
	assert.True(t, FilterSpec{Actions: []string{"r", "w"}}.CoarseActions())
	assert.False(t, FilterSpec{Actions: []string{"\\mod\\quiz\\attempted"}}.CoarseActions())
	assert.True(t, FilterSpec{Actions: []string{"r", "a"}}.WantsAllActions())
	assert.False(t, FilterSpec{Actions: []string{"r", "w"}}.WantsAllActions())
}
