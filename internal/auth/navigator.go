package auth

import (
	"net/url"
	"sync"

	"github.com/desertthunder/crate/internal/shared"
)

// Navigator moves the user to a location: an absolute authorization URL or an
// application path such as the home route.
type Navigator interface {
	Navigate(target string) error
	Location() string
}

// BrowserNavigator opens absolute http(s) URLs in the system browser and
// records application paths as the current location.
type BrowserNavigator struct {
	mu       sync.Mutex
	location string
	open     func(string) error
}

// NewBrowserNavigator creates a BrowserNavigator positioned at home.
func NewBrowserNavigator(home string) *BrowserNavigator {
	return &BrowserNavigator{location: home, open: shared.OpenBrowser}
}

func (n *BrowserNavigator) Navigate(target string) error {
	if u, err := url.Parse(target); err == nil && u.IsAbs() {
		if err := n.open(target); err != nil {
			return err
		}
	}

	n.mu.Lock()
	n.location = target
	n.mu.Unlock()
	return nil
}

func (n *BrowserNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}
