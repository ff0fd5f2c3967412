// Package robots answers allow/deny questions from each site's robots.txt.
package robots

import (
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"

	"collector/internal/logger"
)

// UserAgent is the token matched against robots.txt groups.
const UserAgent = "drcollector"

type Service struct {
	http *resty.Client
	log  *logger.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func New() *Service {
	return &Service{
		http:  resty.New().SetTimeout(10 * time.Second),
		log:   logger.New("Robots"),
		cache: make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether the crawler may fetch u. Unreachable or missing
// robots.txt allows everything, matching crawler convention.
func (s *Service) IsAllowed(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}

	data := s.robotsFor(parsed.Scheme + "://" + parsed.Host)
	if data == nil {
		return true
	}
	return data.TestAgent(parsed.Path, UserAgent)
}

func (s *Service) robotsFor(origin string) *robotstxt.RobotsData {
	s.mu.Lock()
	if data, ok := s.cache[origin]; ok {
		s.mu.Unlock()
		return data
	}
	s.mu.Unlock()

	var data *robotstxt.RobotsData
	resp, err := s.http.R().Get(origin + "/robots.txt")
	if err == nil && resp.StatusCode() == 200 {
		if parsed, perr := robotstxt.FromBytes(resp.Body()); perr == nil {
			data = parsed
		} else {
			s.log.LogDebugf("unparseable robots.txt at %s: %v", origin, perr)
		}
	}

	s.mu.Lock()
	s.cache[origin] = data
	s.mu.Unlock()
	return data
}
