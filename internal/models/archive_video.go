package models

// ArchiveVideo is the subset of an archive video record the synchronizer reads.
type ArchiveVideo struct {
	ID           string `json:"youtube_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Published    string `json:"published"`
	ThumbnailURL string `json:"vid_thumb_url"`
	ChannelName  string `json:"channel_name,omitempty"`
}
