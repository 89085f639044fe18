package web

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/scout/core"
)

const (
	speakerSelector = `.speaker, .speakers li, .referent, .referenten li, [itemprop="performer"]`
	sponsorSelector = `.sponsor img[alt], .sponsors img[alt]`
	partnerSelector = `.partner img[alt], .partners img[alt]`
)

// speakerPageWords mark a link to the event's speaker listing.
var speakerPageWords = []string{"speaker", "referent", "sprecher", "intervenant", "faculty"}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func meta(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func firstText(s *goquery.Selection, selector string) string {
	return text(s.Find(selector).First())
}

// fromHTML fills fields the structured data left empty.
func fromHTML(c *core.EventCandidate, doc *goquery.Document, base *url.URL) {
	if c.Title == "" {
		c.Title = meta(doc, `meta[property="og:title"]`)
	}
	if c.Title == "" {
		c.Title = text(doc.Find("title").First())
	}
	if c.Title == "" {
		c.Title = text(doc.Find("h1").First())
	}

	if c.StartDate == nil {
		c.StartDate = parseDate(meta(doc, `[itemprop="startDate"]`))
	}
	if c.EndDate == nil {
		c.EndDate = parseDate(meta(doc, `[itemprop="endDate"]`))
	}
	if c.StartDate == nil {
		var days []string
		doc.Find("time[datetime]").Each(func(_ int, s *goquery.Selection) {
			days = append(days, s.AttrOr("datetime", ""))
		})
		if len(days) > 0 {
			c.StartDate = parseDate(days[0])
		}
		if len(days) > 1 && c.StartDate != nil {
			if end := parseDate(days[1]); end != nil && !end.Before(*c.StartDate) {
				c.EndDate = end
			}
		}
	}

	if c.City == "" {
		c.City = firstText(doc.Selection, `[itemprop="addressLocality"]`)
	}
	if c.Country == "" {
		if country := firstText(doc.Selection, `[itemprop="addressCountry"]`); country != "" {
			c.Country = countryCode(country)
		}
	}
	if c.Organizer == "" {
		c.Organizer = meta(doc, `meta[property="og:site_name"]`)
	}

	if len(c.Speakers) == 0 {
		c.Speakers = htmlSpeakers(doc, base)
	}
	if len(c.Sponsors) == 0 {
		c.Sponsors = imageAlts(doc, sponsorSelector)
	}
	if len(c.Partners) == 0 {
		c.Partners = imageAlts(doc, partnerSelector)
	}
	if c.SpeakersPageURL == "" {
		c.SpeakersPageURL = speakersPage(doc, base)
	}
}

func htmlSpeakers(doc *goquery.Document, base *url.URL) []core.Person {
	var people []core.Person
	seen := make(map[string]bool)
	doc.Find(speakerSelector).Each(func(_ int, s *goquery.Selection) {
		name := firstText(s, `.name, .speaker-name, [itemprop="name"], h3, h4`)
		if name == "" && s.Children().Length() == 0 {
			name = text(s)
		}
		key := core.Fold(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		p := core.Person{
			Name:         name,
			Title:        firstText(s, `.title, .position, .job-title, [itemprop="jobTitle"]`),
			Organization: firstText(s, `.company, .organization, .org, [itemprop="affiliation"], [itemprop="worksFor"]`),
		}
		if href, ok := s.Find("a[href]").First().Attr("href"); ok {
			p.ProfileURL = resolve(base, href)
		}
		people = append(people, p)
	})
	return people
}

func imageAlts(doc *goquery.Document, selector string) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		alt := strings.TrimSpace(s.AttrOr("alt", ""))
		alt = strings.TrimSuffix(strings.TrimSuffix(alt, " Logo"), " logo")
		key := core.Fold(alt)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, alt)
	})
	return out
}

// speakersPage returns the first link whose path names a speaker listing.
func speakersPage(doc *goquery.Document, base *url.URL) string {
	self := core.NormalizeURL(base.String())
	found := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		abs := resolve(base, s.AttrOr("href", ""))
		if abs == "" || core.NormalizeURL(abs) == self {
			return true
		}
		p := core.URLPath(abs)
		for _, w := range speakerPageWords {
			if strings.Contains(p, w) {
				found = abs
				return false
			}
		}
		return true
	})
	return found
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}
