package episode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/apperrors"
	"github.com/Belphemur/ArchiveSync/internal/models"
	"github.com/Belphemur/ArchiveSync/internal/overview"
)

const testItemID = "4f1c2e3d"

func newTestEpisode(t *testing.T, archive Archive, server MediaServer, opts ...Option) *Episode {
	t.Helper()
	e, err := New("vid123", testItemID, archive, server, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func sampleVideo() *models.ArchiveVideo {
	return &models.ArchiveVideo{
		ID:           "vid123",
		Title:        "Ep 1",
		Description:  "",
		Published:    "2021-03-05T00:00:00",
		ThumbnailURL: "x",
	}
}

func TestNew_Validation(t *testing.T) {
	archive := &fakeArchive{}
	server := newFakeMediaServer()

	if _, err := New("vid123", "", archive, server); !errors.Is(err, apperrors.ErrMissingItemID) {
		t.Errorf("Expected ErrMissingItemID, got %v", err)
	}
	if _, err := New("", testItemID, archive, server); err == nil {
		t.Error("Expected error for missing archive ID")
	}
	if _, err := New("vid123", testItemID, nil, server); err == nil {
		t.Error("Expected error for nil archive")
	}
	if len(server.calls) != 0 {
		t.Errorf("Construction must not perform I/O, got calls %v", server.calls)
	}
}

func TestEpisode_Paths(t *testing.T) {
	e := newTestEpisode(t, &fakeArchive{}, newFakeMediaServer())
	if got := e.ItemPath(); got != "Items/"+testItemID {
		t.Errorf("ItemPath = %q", got)
	}
	if got := e.ImagePath(); got != "Items/"+testItemID+"/Images/Primary" {
		t.Errorf("ImagePath = %q", got)
	}
}

func TestEpisode_PathsEscapeItemID(t *testing.T) {
	e, err := New("vid123", "a b/c", &fakeArchive{}, newFakeMediaServer())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := e.ItemPath(); got != "Items/a%20b%2Fc" {
		t.Errorf("ItemPath = %q", got)
	}
	if got := e.ImagePath(); got != "Items/a%20b%2Fc/Images/Primary" {
		t.Errorf("ImagePath = %q", got)
	}
}

func TestBuildUpdate_EmptyDescriptionScenario(t *testing.T) {
	payload, err := BuildUpdate(testItemID, sampleVideo(), overview.Default())
	if err != nil {
		t.Fatalf("BuildUpdate failed: %v", err)
	}

	if payload.ID != testItemID {
		t.Errorf("ID = %q, want %q", payload.ID, testItemID)
	}
	if payload.Name != "Ep 1" {
		t.Errorf("Name = %q, want %q", payload.Name, "Ep 1")
	}
	if payload.ProductionYear != 2021 || payload.IndexNumber != 2021 || payload.ParentIndexNumber != 2021 {
		t.Errorf("Year fields = %d/%d/%d, want 2021 for all", payload.ProductionYear, payload.IndexNumber, payload.ParentIndexNumber)
	}
	if !payload.Overview.IsEmpty() {
		t.Errorf("Expected no-description marker, got %v", payload.Overview)
	}
	if len(payload.GenreItems) != 0 || len(payload.Tags) != 0 || len(payload.ProviderIDs) != 0 {
		t.Error("Genres, tags and provider IDs must be empty")
	}
	if payload.GenreItems == nil || payload.Tags == nil || payload.ProviderIDs == nil {
		t.Error("Reset collections must be empty, not nil")
	}
	if !reflect.DeepEqual(payload.Studios, []models.NameIDPair{{Name: models.ArchiveStudio}}) {
		t.Errorf("Studios = %v", payload.Studios)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"Overview":false`) {
		t.Errorf("Expected Overview false in %s", data)
	}
}

func TestBuildUpdate_SanitizedDescriptionScenario(t *testing.T) {
	video := sampleVideo()
	video.Description = "Check my link: http://x  #tag1 #tag2"

	payload, err := BuildUpdate(testItemID, video, overview.Default())
	if err != nil {
		t.Fatalf("BuildUpdate failed: %v", err)
	}

	text, ok := payload.Overview.Text()
	if !ok {
		t.Fatal("Expected overview text, got marker")
	}
	if text != "Check my link:" {
		t.Errorf("Overview = %q, want %q", text, "Check my link:")
	}
}

func TestBuildUpdate_YearFields(t *testing.T) {
	tests := []struct {
		published string
		year      int
	}{
		{"2021-03-05", 2021},
		{"1999-12-31T23:59:59", 1999},
		{"2020-12-31T23:30:00-05:00", 2020},
		{"2021-01-01T00:30:00+02:00", 2021},
		{"2024-02-29 08:00:00", 2024},
	}

	for _, tt := range tests {
		t.Run(tt.published, func(t *testing.T) {
			video := sampleVideo()
			video.Published = tt.published

			payload, err := BuildUpdate(testItemID, video, nil)
			if err != nil {
				t.Fatalf("BuildUpdate failed: %v", err)
			}
			if payload.ProductionYear != tt.year || payload.IndexNumber != tt.year || payload.ParentIndexNumber != tt.year {
				t.Errorf("Year fields = %d/%d/%d, want %d", payload.ProductionYear, payload.IndexNumber, payload.ParentIndexNumber, tt.year)
			}

			original, _ := ParsePublished(tt.published)
			premiere, err := ParsePublished(payload.PremiereDate)
			if err != nil {
				t.Fatalf("PremiereDate %q does not parse: %v", payload.PremiereDate, err)
			}
			if !premiere.Equal(original) {
				t.Errorf("PremiereDate %q is %v, want instant %v", payload.PremiereDate, premiere, original)
			}
		})
	}
}

func TestBuildUpdate_MalformedDate(t *testing.T) {
	video := sampleVideo()
	video.Published = "not a date"

	_, err := BuildUpdate(testItemID, video, nil)
	if !errors.Is(err, apperrors.ErrMalformedDate) {
		t.Fatalf("Expected MalformedDateError, got %v", err)
	}
}

func TestBuildUpdate_Deterministic(t *testing.T) {
	video := sampleVideo()
	video.Description = "Some text\n-----\n#tag"

	first, err := BuildUpdate(testItemID, video, overview.Default())
	if err != nil {
		t.Fatalf("BuildUpdate failed: %v", err)
	}
	second, err := BuildUpdate(testItemID, video, overview.Default())
	if err != nil {
		t.Fatalf("BuildUpdate failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Payloads differ:\n%+v\n%+v", first, second)
	}
}

func TestEpisode_WithSanitizer(t *testing.T) {
	video := sampleVideo()
	video.Description = "keep #tags http://links"
	server := newFakeMediaServer()
	archive := &fakeArchive{thumbnails: map[string][]byte{"x": []byte("aW1n")}}

	e := newTestEpisode(t, archive, server, WithSanitizer(overview.NewPipeline(overview.CollapseWhitespace())))
	if err := e.UpdateMetadata(context.Background(), video); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	text, _ := server.items[e.ItemPath()].Overview.Text()
	if text != "keep #tags http://links" {
		t.Errorf("Overview = %q, custom sanitizer not used", text)
	}
}

func TestEpisode_FetchAndSync(t *testing.T) {
	video := sampleVideo()
	archive := &fakeArchive{
		videos:     map[string]*models.ArchiveVideo{"vid123": video},
		thumbnails: map[string][]byte{"x": []byte("aW1hZ2U=")},
	}
	server := newFakeMediaServer()
	e := newTestEpisode(t, archive, server)
	ctx := context.Background()

	record, err := e.FetchRecord(ctx)
	if err != nil {
		t.Fatalf("FetchRecord failed: %v", err)
	}
	if err := e.Sync(ctx, record); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	wantCalls := []string{"item:Items/" + testItemID, "image:Items/" + testItemID + "/Images/Primary"}
	if !reflect.DeepEqual(server.calls, wantCalls) {
		t.Errorf("Calls = %v, want %v", server.calls, wantCalls)
	}
	if string(server.images[e.ImagePath()]) != "aW1hZ2U=" {
		t.Errorf("Image = %q", server.images[e.ImagePath()])
	}
	if server.items[e.ItemPath()].ID != testItemID {
		t.Error("Metadata payload not written for the item")
	}
}

func TestEpisode_LookupFailureBeforeAnyWrite(t *testing.T) {
	archive := &fakeArchive{videos: map[string]*models.ArchiveVideo{}}
	server := newFakeMediaServer()
	e := newTestEpisode(t, archive, server)

	_, err := e.FetchRecord(context.Background())
	if !errors.Is(err, apperrors.ErrRemoteLookup) {
		t.Fatalf("Expected RemoteLookupFailure, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected not-found cause, got %v", err)
	}
	if len(server.calls) != 0 {
		t.Errorf("Media server must not be touched, got calls %v", server.calls)
	}
}

func TestEpisode_MalformedDateSkipsWrites(t *testing.T) {
	video := sampleVideo()
	video.Published = "??"
	server := newFakeMediaServer()
	e := newTestEpisode(t, &fakeArchive{}, server)

	if err := e.Sync(context.Background(), video); !errors.Is(err, apperrors.ErrMalformedDate) {
		t.Fatalf("Expected MalformedDateError, got %v", err)
	}
	if len(server.calls) != 0 {
		t.Errorf("No write expected, got %v", server.calls)
	}
}

func TestEpisode_MetadataFailureStopsBeforeArtwork(t *testing.T) {
	server := newFakeMediaServer()
	server.itemErr = apperrors.NewRemoteWriteFailure("media server", "Items/"+testItemID, 400, nil)
	archive := &fakeArchive{thumbnails: map[string][]byte{"x": []byte("aW1n")}}
	e := newTestEpisode(t, archive, server)

	err := e.Sync(context.Background(), sampleVideo())
	if !errors.Is(err, apperrors.ErrRemoteWrite) {
		t.Fatalf("Expected RemoteWriteFailure, got %v", err)
	}
	if !reflect.DeepEqual(server.calls, []string{"item:Items/" + testItemID}) {
		t.Errorf("Artwork must not be attempted, calls = %v", server.calls)
	}
}

func TestEpisode_ThumbnailFailureKeepsMetadata(t *testing.T) {
	server := newFakeMediaServer()
	archive := &fakeArchive{thumbnailErr: apperrors.NewRemoteLookupFailure("archive", "thumbnail x", errors.New("timeout"))}
	e := newTestEpisode(t, archive, server)

	err := e.Sync(context.Background(), sampleVideo())
	if !errors.Is(err, apperrors.ErrRemoteLookup) {
		t.Fatalf("Expected RemoteLookupFailure, got %v", err)
	}
	if _, ok := server.items[e.ItemPath()]; !ok {
		t.Error("Metadata should have been written before the thumbnail failure")
	}
	if _, ok := server.images[e.ImagePath()]; ok {
		t.Error("No image should be written")
	}
}

func TestEpisode_MissingThumbnailReference(t *testing.T) {
	video := sampleVideo()
	video.ThumbnailURL = ""
	server := newFakeMediaServer()
	e := newTestEpisode(t, &fakeArchive{}, server)

	if err := e.UpdateArtwork(context.Background(), video); !errors.Is(err, apperrors.ErrRemoteLookup) {
		t.Fatalf("Expected RemoteLookupFailure, got %v", err)
	}
	if len(server.calls) != 0 {
		t.Errorf("No write expected, got %v", server.calls)
	}
}

func TestEpisode_ImageFailureThenRerun(t *testing.T) {
	server := newFakeMediaServer()
	server.imageErrs = []error{apperrors.NewRemoteWriteFailure("media server", "Items/"+testItemID+"/Images/Primary", 500, nil)}
	archive := &fakeArchive{thumbnails: map[string][]byte{"x": []byte("aW1n")}}
	e := newTestEpisode(t, archive, server)
	ctx := context.Background()
	video := sampleVideo()

	err := e.Sync(ctx, video)
	if !errors.Is(err, apperrors.ErrRemoteWrite) {
		t.Fatalf("Expected RemoteWriteFailure on first run, got %v", err)
	}
	firstPayload := server.items[e.ItemPath()]
	if firstPayload == nil {
		t.Fatal("Metadata should be updated after the first run")
	}
	if _, ok := server.images[e.ImagePath()]; ok {
		t.Fatal("Image should be missing after the failed first run")
	}

	if err := e.Sync(ctx, video); err != nil {
		t.Fatalf("Re-run failed: %v", err)
	}
	if string(server.images[e.ImagePath()]) != "aW1n" {
		t.Error("Re-run should write the image")
	}
	if !reflect.DeepEqual(server.items[e.ItemPath()], firstPayload) {
		t.Error("Re-run must write the same metadata payload")
	}
}

func TestEpisode_PreviewDoesNotWrite(t *testing.T) {
	server := newFakeMediaServer()
	e := newTestEpisode(t, &fakeArchive{}, server)

	payload, err := e.Preview(sampleVideo())
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if payload.ID != testItemID || payload.ProductionYear != 2021 {
		t.Errorf("Unexpected payload %+v", payload)
	}
	if len(server.calls) != 0 {
		t.Errorf("Preview must not write, got calls %v", server.calls)
	}
	if _, err := e.Preview(nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestEpisode_FetchRecordLogsChannel(t *testing.T) {
	var buf bytes.Buffer
	video := sampleVideo()
	video.ChannelName = "Rick Astley"
	archive := &fakeArchive{videos: map[string]*models.ArchiveVideo{"vid123": video}}
	e := newTestEpisode(t, archive, newFakeMediaServer(), WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

	if _, err := e.FetchRecord(context.Background()); err != nil {
		t.Fatalf("FetchRecord failed: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["channel"] != "Rick Astley" || entry["archiveID"] != "vid123" {
		t.Errorf("Unexpected log fields: %v", entry)
	}
}
