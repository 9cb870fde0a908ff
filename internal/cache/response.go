// Package cache holds the bounded TTL caches around the serving core: the
// request-id response cache, the jackpot contribution coalescer and the
// launch-host picker.
package cache

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	responseCap = 4096
	responseTTL = 15 * time.Minute
)

// CachedResponse is a fully materialized HTTP answer, replayed verbatim for a
// retransmitted request id.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// ResponseCache keys cached answers by the client-supplied request id. Equal
// ids within the TTL observe byte-identical responses.
type ResponseCache struct {
	lru *expirable.LRU[string, *CachedResponse]
}

// NewResponseCache builds the cache with its fixed capacity and TTL.
func NewResponseCache() *ResponseCache {
	return &ResponseCache{
		lru: expirable.NewLRU[string, *CachedResponse](responseCap, nil, responseTTL),
	}
}

// Get returns the cached answer for a request id.
func (c *ResponseCache) Get(requestID string) (*CachedResponse, bool) {
	return c.lru.Get(requestID)
}

// Put stores an answer under a request id.
func (c *ResponseCache) Put(requestID string, resp *CachedResponse) {
	c.lru.Add(requestID, resp)
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int { return c.lru.Len() }
