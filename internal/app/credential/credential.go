/*
Package credential holds the credential attached to every outgoing authenticated call.

A Context replaces a process-wide default header: each API client is constructed with
the Context of the session it serves, so independent sessions never share a token.
*/
package credential

import (
	"net/http"
	"sync"
)

// HeaderName is the request header the authentication API reads the token from.
const HeaderName = "token"

// Context is the credential of one session. The zero value holds no token.
type Context struct {
	mu    sync.RWMutex
	token string
}

// New returns an empty Context.
func New() *Context {
	return &Context{}
}

// Set replaces the current token.
func (c *Context) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Clear removes the current token.
func (c *Context) Clear() {
	c.Set("")
}

// Token returns the current token and whether one is set.
func (c *Context) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != ""
}

// Apply sets the credential header on req when a token is present, and removes it otherwise.
// The value is read once, so a token change after Apply does not affect req.
func (c *Context) Apply(req *http.Request) {
	if token, ok := c.Token(); ok {
		req.Header.Set(HeaderName, token)
		return
	}
	req.Header.Del(HeaderName)
}
