package valuation

import "testing"

func TestURLAllowed(t *testing.T) {
	allowed := []string{"trademe.co.nz", "homes.co.nz"}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.trademe.co.nz/a/property/listing/1", true},
		{"https://homes.co.nz/address/1-king-st", true},
		{"http://trademe.co.nz/listing", true},
		{"https://evil.example.com/trademe.co.nz", false},
		{"https://nottrademe.co.nz/listing", false},
		{"ftp://trademe.co.nz/listing", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := URLAllowed(tt.url, allowed); got != tt.want {
			t.Errorf("URLAllowed(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSiteLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.trademe.co.nz/a/property", "trademe.co.nz"},
		{"https://homes.co.nz/address", "homes.co.nz"},
		{"garbage", "listing site"},
	}

	for _, tt := range tests {
		if got := SiteLabel(tt.url); got != tt.want {
			t.Errorf("SiteLabel(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
