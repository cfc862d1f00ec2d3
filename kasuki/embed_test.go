package kasuki

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestEmbedBuilder(t *testing.T) {
	e := newEmbed().
		title(strings.Repeat("t", 300)).
		description(strings.Repeat("d", 5000)).
		hexColor("#3DB4F2").
		field("empty", "  ", true).
		field("name", "value", false).
		thumbnail("").
		footer("footer").
		build()

	assert.Len(t, e.Title, embedTitleMaxLength)
	assert.Len(t, e.Description, embedDescriptionMaxLength)
	assert.True(t, strings.HasSuffix(e.Description, "..."))
	assert.Equal(t, 0x3DB4F2, e.Color)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "name", e.Fields[0].Name)
	assert.Nil(t, e.Thumbnail)
	require.NotNil(t, e.Footer)

	invalid := newEmbed().hexColor("blue").build()
	assert.Equal(t, colorDefault, invalid.Color)

	many := newEmbed()
	for i := 0; i < 30; i++ {
		many.field(fmt.Sprint(i), "v", true)
	}
	assert.Len(t, many.build().Fields, embedMaxFields)
}

func TestCleanDescription(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"line<br>break", "line\nbreak"},
		{"<i>italic</i> and <b>bold</b>", "*italic* and **bold**"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"a ~!secret!~ b", "a ||secret|| b"},
		{"<a href=\"x\">link</a>", "link"},
		{"[url=https://vndb.org/v1]VN[/url]", "[VN](https://vndb.org/v1)"},
		{"[spoiler]ending[/spoiler]", "||ending||"},
		{"one\n\n\n\ntwo", "one\n\ntwo"},
		{"  padded  ", "padded"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, cleanDescription(tc.input), tc.input)
	}
}

func TestJoinLimit(t *testing.T) {
	assert.Equal(t, "a, b", joinLimit([]string{"a", "", "b"}, ", ", 100))
	assert.Equal(t, "aaa", joinLimit([]string{"aaa", "bbb"}, ", ", 6))
	assert.Equal(t, "", joinLimit(nil, ", ", 10))
}

func TestMarkdownLinkAndTimestamp(t *testing.T) {
	assert.Equal(t, "text", markdownLink("text", ""))
	assert.Equal(t, "[text](https://anilist.co)", markdownLink("text", "https://anilist.co"))
	assert.Equal(t, "<t:1700000000:R>", discordTimestamp(1700000000))
}
