package xhr

import (
	"context"

	"github.com/abdul-hamid-achik/qxhr/packages/future"
)

// Default is the client behind the package-level helpers.
var Default = New()

// Request starts cfg on the Default client.
func Request(cfg Config) *future.Future[*Response] {
	return Default.Request(cfg)
}

// Do runs cfg on the Default client and waits for the outcome.
func Do(ctx context.Context, cfg Config) (*Response, error) {
	return Default.Do(ctx, cfg)
}

// Get requests url with GET on the Default client.
func Get(url string, cfg *Config) *future.Future[*Response] {
	return Default.Get(url, cfg)
}

// Delete requests url with DELETE on the Default client.
func Delete(url string, cfg *Config) *future.Future[*Response] {
	return Default.Delete(url, cfg)
}

// Head requests url with HEAD on the Default client.
func Head(url string, cfg *Config) *future.Future[*Response] {
	return Default.Head(url, cfg)
}

// Post sends data to url with POST on the Default client.
func Post(url string, data any, cfg *Config) *future.Future[*Response] {
	return Default.Post(url, data, cfg)
}

// Put sends data to url with PUT on the Default client.
func Put(url string, data any, cfg *Config) *future.Future[*Response] {
	return Default.Put(url, data, cfg)
}

// Patch sends data to url with PATCH on the Default client.
func Patch(url string, data any, cfg *Config) *future.Future[*Response] {
	return Default.Patch(url, data, cfg)
}

// Pendings returns the in-flight requests of the Default client.
func Pendings() []*Config {
	return Default.Pending().List()
}
