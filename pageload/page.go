package pageload

import "context"

// Params are the route and query parameters of the page being loaded.
type Params map[string]string

// Get returns the value for key, or "" when absent.
func (p Params) Get(key string) string {
	return p[key]
}

// Hook is one step of a page's load sequence.
type Hook func(ctx context.Context, params Params) error

// Page declares a navigable page. A page without hooks renders Ready.
type Page struct {
	Route string
	Title string
	Hooks []Hook
}

// Load runs the page's hooks on c.
func (p Page) Load(ctx context.Context, c *Coordinator, params Params) (redirect string) {
	return c.Run(ctx, p.Hooks, params)
}

// Ready is a no-op hook. Pages use it to make a chain's end explicit.
func Ready(context.Context, Params) error {
	return nil
}
