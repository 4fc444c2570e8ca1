package simcompanies

import (
	"net/url"
	"sort"
	"strings"

	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
)

// ChatroomAPI is the base address of the chatroom message API.
const ChatroomAPI = "https://www.simcompanies.com/api/chatroom/"

// LatestMessageID asks the API for the newest page of messages.
const LatestMessageID = "1000000000"

// Endpoint is one pollable API address.
type Endpoint struct {
	ID  string
	URL string
}

// ChatroomURL builds the API address for a chatroom code.
func ChatroomURL(room string) string {
	q := url.Values{}
	q.Set("chatroom", room)
	q.Set("last_id", LatestMessageID)
	return ChatroomAPI + "?" + q.Encode()
}

// DefaultEndpoints are the chatrooms known out of the box.
var DefaultEndpoints = []Endpoint{
	{ID: "ZH", URL: ChatroomURL("N")},
	{ID: "EN", URL: ChatroomURL("G")},
	{ID: "R2_H", URL: ChatroomURL("H")},
	{ID: "R2_X", URL: ChatroomURL("X")},
}

// Catalog is the ordered set of endpoints a session may select from.
type Catalog struct {
	entries []Endpoint
}

// NewCatalog returns the default endpoints with overrides applied. An
// override for a known id replaces its URL in place; new ids are appended
// in sorted order.
func NewCatalog(overrides map[string]string) *Catalog {
	entries := make([]Endpoint, len(DefaultEndpoints))
	copy(entries, DefaultEndpoints)

	var added []string
	for id, u := range overrides {
		replaced := false
		for i := range entries {
			if entries[i].ID == id {
				entries[i].URL = u
				replaced = true
				break
			}
		}
		if !replaced {
			added = append(added, id)
		}
	}
	sort.Strings(added)
	for _, id := range added {
		entries = append(entries, Endpoint{ID: id, URL: overrides[id]})
	}
	return &Catalog{entries: entries}
}

// All returns every endpoint in catalog order.
func (c *Catalog) All() []Endpoint {
	out := make([]Endpoint, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds an endpoint by id, ignoring case.
func (c *Catalog) Lookup(id string) (Endpoint, bool) {
	for _, e := range c.entries {
		if strings.EqualFold(e.ID, id) {
			return e, true
		}
	}
	return Endpoint{}, false
}

// Select resolves a selection: "all" for the whole catalog, otherwise a
// comma separated list of ids kept in the order given. Unknown ids are
// dropped with a warning and repeats are ignored. An empty result is a
// configuration error.
func (c *Catalog) Select(selection string, log logger.Logger) ([]Endpoint, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	selection = strings.TrimSpace(selection)
	if strings.EqualFold(selection, "all") {
		return c.All(), nil
	}

	var out []Endpoint
	seen := make(map[string]bool)
	for _, part := range strings.Split(selection, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		e, ok := c.Lookup(id)
		if !ok {
			log.WarnWithFields("Unknown endpoint ignored", map[string]interface{}{
				"endpoint": id,
			})
			continue
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}

	if len(out) == 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "no known endpoints in selection %q", selection)
	}
	return out, nil
}
