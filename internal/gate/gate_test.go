package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdmit_SecondFromSameIPRejected(t *testing.T) {
	g := New(true)

	tok1, ok1 := g.Admit("1.2.3.4")
	if !ok1 {
		t.Fatal("first admit should succeed")
	}
	_, ok2 := g.Admit("1.2.3.4")
	if ok2 {
		t.Fatal("second admit from same IP while first is in flight should be rejected")
	}

	tok1.Release()
	_, ok3 := g.Admit("1.2.3.4")
	if !ok3 {
		t.Fatal("admit after release should succeed")
	}
}

func TestAdmit_DifferentIPsIndependent(t *testing.T) {
	g := New(true)

	_, ok1 := g.Admit("1.1.1.1")
	_, ok2 := g.Admit("2.2.2.2")
	if !ok1 || !ok2 {
		t.Fatal("distinct IPs should be admitted independently")
	}
}

func TestAdmit_DisabledAlwaysAdmits(t *testing.T) {
	g := New(false)

	_, ok1 := g.Admit("1.2.3.4")
	_, ok2 := g.Admit("1.2.3.4")
	if !ok1 || !ok2 {
		t.Fatal("disabled gate should always admit")
	}
}

func TestReleaseOnZeroTokenIsNoOp(t *testing.T) {
	var tok Token
	tok.Release() // must not panic
}

func TestClientIP_DirectConnection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/75", nil)
	r.RemoteAddr = "203.0.113.5:54321"

	if ip := ClientIP(r, false); ip != "203.0.113.5" {
		t.Errorf("ClientIP = %q, want 203.0.113.5", ip)
	}
}

func TestClientIP_ReverseProxy(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/75", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")

	if ip := ClientIP(r, true); ip != "198.51.100.9" {
		t.Errorf("ClientIP = %q, want 198.51.100.9", ip)
	}
}

func TestClientIP_ReverseProxyMalformedFallsBack(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/75", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "")

	if ip := ClientIP(r, true); ip != "10.0.0.1" {
		t.Errorf("ClientIP = %q, want 10.0.0.1", ip)
	}
}
