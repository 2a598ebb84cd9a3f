package models

import "encoding/json"

// ArchiveStudio is the studio assigned to every synchronized item. Existing
// libraries carry this exact spelling.
const ArchiveStudio = "YouTubeAchivist"

// NameIDPair mirrors the media server's {Name, Id} reference objects.
type NameIDPair struct {
	Name string `json:"Name"`
	ID   string `json:"Id,omitempty"`
}

// ItemUpdate is the full-overwrite payload posted to the media server's item
// endpoint. GenreItems, Tags and ProviderIDs are always serialized as empty
// collections, never null, so each sync resets them.
type ItemUpdate struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	GenreItems        []NameIDPair      `json:"GenreItems"`
	Tags              []string          `json:"Tags"`
	ProductionYear    int               `json:"ProductionYear"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	IndexNumber       int               `json:"IndexNumber"`
	ParentIndexNumber int               `json:"ParentIndexNumber"`
	PremiereDate      string            `json:"PremiereDate"`
	Overview          Overview          `json:"Overview"`
	Studios           []NameIDPair      `json:"Studios"`
}

// MarshalJSON implements json.Marshaler interface
func (u ItemUpdate) MarshalJSON() ([]byte, error) {
	type plain ItemUpdate
	p := plain(u)
	if p.GenreItems == nil {
		p.GenreItems = []NameIDPair{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.ProviderIDs == nil {
		p.ProviderIDs = map[string]string{}
	}
	if p.Studios == nil {
		p.Studios = []NameIDPair{}
	}
	return json.Marshal(p)
}
