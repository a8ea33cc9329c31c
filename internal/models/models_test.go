package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQuality(t *testing.T) {
	tests := []struct {
		name      string
		voteScore int
		length    int
		high      bool
	}{
		{"high score regardless of length", 11, 50, true},
		{"long with moderate score", 6, 250, true},
		{"moderate score not long enough", 6, 150, false},
		{"long but score too low", 5, 400, false},
		{"score exactly ten", 10, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, high := ClassifyQuality(tt.voteScore, tt.length)
			assert.Equal(t, tt.high, high)
		})
	}
}

func TestCommentRecalculate(t *testing.T) {
	c := &Comment{UpvoteCount: 8, DownvoteCount: 2, Content: strings.Repeat("x", 250)}
	c.Recalculate()

	assert.Equal(t, 6, c.VoteScore)
	assert.InDelta(t, 8.5, c.QualityScore, 1e-9)
	assert.True(t, c.IsHighQuality)
}

func TestCommentLengthCountsRunes(t *testing.T) {
	// 201 个多字节字符，按字符计数超过 200
	c := &Comment{UpvoteCount: 6, Content: strings.Repeat("ن", 201)}
	c.Recalculate()
	assert.True(t, c.IsHighQuality)
}

func TestPostRecalculate(t *testing.T) {
	p := &Post{UpvoteCount: 10, DownvoteCount: 4, CommentCount: 5, ViewCount: 30}
	p.Recalculate()

	assert.Equal(t, 6, p.VoteScore)
	assert.InDelta(t, 20+4+15+3.0, p.InteractionScore, 1e-9)
}

func TestParseVoteType(t *testing.T) {
	assert.Equal(t, VoteUp, ParseVoteType("up"))
	assert.Equal(t, VoteDown, ParseVoteType("down"))
	assert.Equal(t, VoteRemove, ParseVoteType("remove"))
	assert.Equal(t, VoteRemove, ParseVoteType("sideways"))
	assert.Equal(t, 0, ParseVoteType("").Value())
}
