package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/foundry-core/foundry/internal/db/models"
)

var cacheRequests = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "auth_cache_requests_total",
		Help: "Number of auth cache lookups, differentiated by cache and result.",
	},
	[]string{"cache", "result"},
)

func countLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	cacheRequests.WithLabelValues(cache, result).Inc()
}

// cache holds the lookups of one Auth instance. A nil map means not loaded.
type cache struct {
	user       map[string]*models.User
	users      map[string]*models.User
	userGroups map[string]map[string]string
	group      map[string]*models.Group
	groups     map[bool]map[string]*models.Group // keyed by flatten
	groupNames map[string]string
}

func newCache() *cache {
	return &cache{
		user:       make(map[string]*models.User),
		userGroups: make(map[string]map[string]string),
		group:      make(map[string]*models.Group),
		groups:     make(map[bool]map[string]*models.Group),
	}
}

func (c *cache) putUser(u *models.User) {
	c.user[u.Username()] = u.Clone()

	if c.users != nil {
		c.users[u.Username()] = u.Clone()
	}
}

func (c *cache) dropUser(username string) {
	delete(c.user, username)
	delete(c.userGroups, username)

	if c.users != nil {
		delete(c.users, username)
	}
}

func (c *cache) putGroup(g *models.Group) {
	c.group[g.Name()] = g.Clone()
}

// membershipChanged drops what a membership change of group can affect.
// An empty username drops the groups of every user.
func (c *cache) membershipChanged(group, username string) {
	delete(c.group, group)
	clear(c.groups)

	if username == "" {
		clear(c.userGroups)
		return
	}

	delete(c.userGroups, username)
}

func (c *cache) topologyChanged(group string) {
	delete(c.group, group)
	clear(c.groups)
	clear(c.userGroups)
	c.groupNames = nil
}
