package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

func TestArchitecture(t *testing.T) {
	quandify := archunit.Packages("quandify", []string{".../internal/quandify"})
	poller := archunit.Packages("poller", []string{".../internal/poller"})
	hass := archunit.Packages("hass", []string{".../internal/hass"})
	server := archunit.Packages("server", []string{".../internal/server"})
	config := archunit.Packages("config", []string{".../internal/config"})

	// Rule 1: the vendor client is the bottom layer
	if err := quandify.ShouldNotReferLayers(poller); err != nil {
		t.Errorf("Architecture violation: quandify depends on poller: %v", err)
	}
	if err := quandify.ShouldNotReferLayers(hass); err != nil {
		t.Errorf("Architecture violation: quandify depends on hass: %v", err)
	}
	if err := quandify.ShouldNotReferLayers(server); err != nil {
		t.Errorf("Architecture violation: quandify depends on server: %v", err)
	}

	// Rule 2: the poller knows nothing about transports
	if err := poller.ShouldNotReferLayers(hass); err != nil {
		t.Errorf("Architecture violation: poller depends on hass: %v", err)
	}
	if err := poller.ShouldNotReferLayers(server); err != nil {
		t.Errorf("Architecture violation: poller depends on server: %v", err)
	}

	// Rule 3: the mqtt publisher and the http server stay independent
	if err := hass.ShouldNotReferLayers(server); err != nil {
		t.Errorf("Architecture violation: hass depends on server: %v", err)
	}
	if err := server.ShouldNotReferLayers(hass); err != nil {
		t.Errorf("Architecture violation: server depends on hass: %v", err)
	}

	// Rule 4: config wires layers together but never the server
	if err := config.ShouldNotReferLayers(server); err != nil {
		t.Errorf("Architecture violation: config depends on server: %v", err)
	}
}
