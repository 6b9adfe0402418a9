package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
)

// ShareService builds the social-share deep links of the campaign page
type ShareService struct {
	origin      string
	beneficiary string
	// accidentOn is " on <date>" or empty when no date is configured
	accidentOn string
}

// NewShareService creates a share link builder for the configured site
func NewShareService(cfg *config.Config) *ShareService {
	s := &ShareService{
		origin:      strings.TrimRight(cfg.App.SiteOrigin, "/"),
		beneficiary: cfg.Campaign.Beneficiary,
	}
	if date := strings.TrimSpace(cfg.Campaign.AccidentDate); date != "" {
		s.accidentOn = " on " + date
	}
	return s
}

// Links returns every share link; now stamps the email subject
func (s *ShareService) Links(now time.Time) []entity.ShareLink {
	donateURL := s.origin + "/donate.html"
	pitch := fmt.Sprintf("Help %s recover from his motorcycle accident—donate crypto now! ❤️ %s", s.beneficiary, donateURL)
	datedPitch := fmt.Sprintf("Help %s recover from his motorcycle accident%s—donate crypto now! ❤️ %s", s.beneficiary, s.accidentOn, donateURL)

	return []entity.ShareLink{
		{Platform: "x", URL: "https://twitter.com/intent/tweet?text=" + encodeURIComponent(pitch)},
		{Platform: "facebook", URL: "https://www.facebook.com/sharer/sharer.php?u=" + encodeURIComponent(s.origin)},
		{Platform: "linkedin", URL: fmt.Sprintf("https://www.linkedin.com/sharing/share-offsite/?url=%s&title=%s&summary=%s",
			encodeURIComponent(s.origin),
			encodeURIComponent(fmt.Sprintf("Support %s's Recovery Fund", s.beneficiary)),
			encodeURIComponent(fmt.Sprintf("%s needs our help after a serious accident. Donate crypto to cover his bills!", s.beneficiary)))},
		{Platform: "whatsapp", URL: "https://api.whatsapp.com/send?text=" + encodeURIComponent(pitch)},
		{Platform: "telegram", URL: fmt.Sprintf("https://t.me/share/url?url=%s&text=%s",
			encodeURIComponent(donateURL), encodeURIComponent(datedPitch))},
		{Platform: "email", URL: s.mailto(now, donateURL)},
	}
}

func (s *ShareService) mailto(now time.Time, donateURL string) string {
	accident := "motorcycle accident"
	if s.accidentOn != "" {
		accident += s.accidentOn + ","
	}
	subject := fmt.Sprintf("Support %s's Recovery Fund - Update on %s", s.beneficiary, now.Format("January 2, 2006"))
	body := fmt.Sprintf(`%s was in a serious %s and is recovering from surgery. Let's help cover his hospital bills and therapy—donate crypto here: %s

Your support means everything! ❤️

Forward this to friends who might want to contribute.

#%sRecoveryFund`, s.beneficiary, accident, donateURL, s.beneficiary)

	return fmt.Sprintf("mailto:?subject=%s&body=%s", encodeURIComponent(subject), encodeURIComponent(body))
}

// uriComponentReplacer undoes the QueryEscape cases encodeURIComponent leaves alone
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes like the browser function of the same name
func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}
