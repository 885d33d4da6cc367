package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// EmailVerifier decides whether an extracted address is worth keeping.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) bool
}

// DNSVerifier accepts an email when its domain publishes MX records.
type DNSVerifier struct {
	Servers []string
	Client  *dns.Client
}

// NewDNSVerifier returns a verifier querying servers in order.
func NewDNSVerifier(servers []string) *DNSVerifier {
	return &DNSVerifier{
		Servers: servers,
		Client:  &dns.Client{Timeout: 5 * time.Second},
	}
}

func (v *DNSVerifier) Verify(ctx context.Context, email string) bool {
	_, domain, ok := strings.Cut(email, "@")
	domain = strings.TrimSpace(domain)
	if !ok || domain == "" {
		return false
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), dns.TypeMX)
	msg.RecursionDesired = true

	for _, server := range v.Servers {
		resp, _, err := v.Client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil {
			continue
		}
		if resp.Rcode == dns.RcodeSuccess && len(resp.Answer) > 0 {
			return true
		}
	}
	return false
}
