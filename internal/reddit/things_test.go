package reddit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc123", ShortID("t1_abc123"))
	assert.Equal(t, "abc123", ShortID("abc123"))
}

func TestFullnamePrefix(t *testing.T) {
	assert.Equal(t, "t1_", FullnamePrefix(KindComment))
	assert.Equal(t, "t3_", FullnamePrefix(KindPost))
	assert.Equal(t, "t4_", FullnamePrefix(KindMessage))
	assert.Equal(t, "", FullnamePrefix(Kind("bogus")))
}

func TestIsDeleted(t *testing.T) {
	assert.True(t, (&Thing{Author: "[deleted]"}).IsDeleted())
	assert.True(t, (&Thing{}).IsDeleted())
	assert.False(t, (&Thing{Author: "alice"}).IsDeleted())
}

func TestPostID(t *testing.T) {
	post := &Thing{ID: "t3_p1", Kind: KindPost}
	assert.Equal(t, "t3_p1", post.PostID())

	comment := &Thing{ID: "t1_c1", Kind: KindComment, Post: post}
	assert.Equal(t, "t3_p1", comment.PostID())

	orphan := &Thing{ID: "t1_c2", Kind: KindComment}
	assert.Equal(t, "", orphan.PostID())
}

func TestParseListing(t *testing.T) {
	raw := []byte(`{"data":{"children":[
		{"kind":"t1","data":{
			"name":"t1_c1","parent_id":"t3_p1","link_id":"t3_p1",
			"author":"alice","author_flair_text":"2Δ","body":"!delta",
			"permalink":"/r/sub/c1","created_utc":1700000000.0,"edited":false
		}},
		{"kind":"t1","data":{
			"name":"t1_c2","author":"bob","body":"changed",
			"created_utc":1700000100.0,"edited":1700000200.0
		}},
		{"kind":"t3","data":{
			"name":"t3_p1","author":"op","title":"CMV","selftext":"body text",
			"created_utc":1699999000.0,"edited":false
		}},
		{"kind":"t4","data":{
			"name":"t4_m1","author":"carol","subject":"adddelta","body":"https://x"
		}}
	]}}`)

	things, err := parseListing(raw)
	require.NoError(t, err)
	require.Len(t, things, 4)

	c1 := things[0]
	assert.Equal(t, KindComment, c1.Kind)
	assert.Equal(t, "t1_c1", c1.ID)
	assert.Equal(t, "t3_p1", c1.ParentID)
	assert.Equal(t, "2Δ", c1.AuthorFlairText)
	assert.Equal(t, int64(1700000000), c1.CreatedUTC)
	assert.False(t, c1.IsEdited, "edited:false")

	// "edited" как epoch правки
	assert.True(t, things[1].IsEdited)

	post := things[2]
	assert.Equal(t, KindPost, post.Kind)
	assert.Equal(t, "CMV", post.Title)
	assert.Equal(t, "body text", post.Body, "selftext становится телом поста")

	msg := things[3]
	assert.Equal(t, KindMessage, msg.Kind)
	assert.Equal(t, "adddelta", msg.Subject)
}

func TestParseListingMalformed(t *testing.T) {
	_, err := parseListing([]byte("not json"))
	assert.Error(t, err)
}
