package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Page operations. Each returns the raw status and body so the caller
// (normally the resilient invoker) can apply the session-expiry retry
// protocol uniformly. Decode* helpers turn a 2xx body into its typed
// shape.

// FetchPosts lists a page's most recent posts.
func (c *Client) FetchPosts(ctx context.Context, token, pageID string, limit int) (int, []byte, error) {
	params := url.Values{
		"access_token": {token},
		"fields":       {"id,message,created_time"},
		"limit":        {strconv.Itoa(limit)},
	}

	return c.Get(ctx, "/"+pageID+"/posts", params)
}

// FetchComments lists the comments on a post, oldest first.
func (c *Client) FetchComments(ctx context.Context, token, postID string) (int, []byte, error) {
	params := url.Values{
		"access_token": {token},
		"fields":       {"id,message,created_time,from"},
		"order":        {"chronological"},
	}

	return c.Get(ctx, "/"+postID+"/comments", params)
}

// PostReply publishes a reply under a comment.
func (c *Client) PostReply(ctx context.Context, token, commentID, message string) (int, []byte, error) {
	params := url.Values{
		"access_token": {token},
		"message":      {message},
	}

	return c.Post(ctx, "/"+commentID+"/comments", params)
}

// PublishPost publishes a new post to the page feed.
func (c *Client) PublishPost(ctx context.Context, token, pageID, message string) (int, []byte, error) {
	params := url.Values{
		"access_token": {token},
		"message":      {message},
	}

	return c.Post(ctx, "/"+pageID+"/feed", params)
}

// FetchPageInfo looks up a page's identity.
func (c *Client) FetchPageInfo(ctx context.Context, token, pageID string) (int, []byte, error) {
	params := url.Values{
		"access_token": {token},
		"fields":       {"id,name"},
	}

	return c.Get(ctx, "/"+pageID, params)
}

// DecodePosts decodes a post listing body.
func DecodePosts(body []byte) ([]Post, error) {
	var envelope postsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding post listing: %w", err)
	}

	return envelope.Data, nil
}

// DecodeComments decodes a comment listing body.
func DecodeComments(body []byte) ([]Comment, error) {
	var envelope commentsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding comment listing: %w", err)
	}

	return envelope.Data, nil
}

// DecodePublish decodes the response to a publish or reply call.
func DecodePublish(body []byte) (PublishResponse, error) {
	var resp PublishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return PublishResponse{}, fmt.Errorf("decoding publish response: %w", err)
	}

	return resp, nil
}

// DecodePageInfo decodes a page info body.
func DecodePageInfo(body []byte) (PageInfo, error) {
	var info PageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return PageInfo{}, fmt.Errorf("decoding page info: %w", err)
	}

	return info, nil
}
