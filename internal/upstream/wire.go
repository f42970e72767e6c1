// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taibuivan/ratesync/internal/rates"
	"github.com/taibuivan/ratesync/pkg/pointer"
)

// Target types used by the v2 user_rates resource.
const (
	targetAnime = "Anime"
	targetManga = "Manga"
)

// date decodes the service's calendar dates ("2006-01-02"), which carry no time.
type date struct {
	time *time.Time
}

func (d *date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.time = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.time = nil
		return nil
	}

	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("upstream: bad date %q: %w", raw, err)
	}
	d.time = &parsed
	return nil
}

type imageSet struct {
	Original string `json:"original"`
	Preview  string `json:"preview"`
}

// contentWire is an anime or manga as embedded in list pages.
type contentWire struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Russian       string   `json:"russian"`
	Image         imageSet `json:"image"`
	Kind          string   `json:"kind"`
	Status        string   `json:"status"`
	Episodes      int      `json:"episodes"`
	EpisodesAired int      `json:"episodes_aired"`
	Chapters      int      `json:"chapters"`
	Volumes       int      `json:"volumes"`
	AiredOn       date     `json:"aired_on"`
	ReleasedOn    date     `json:"released_on"`
}

func (wire *contentWire) toContent() *rates.Content {
	if wire == nil {
		return nil
	}
	image := wire.Image.Preview
	if image == "" {
		image = wire.Image.Original
	}
	return &rates.Content{
		ID:            wire.ID,
		Name:          wire.Name,
		Russian:       wire.Russian,
		Kind:          wire.Kind,
		Status:        wire.Status,
		ImageURL:      image,
		Episodes:      wire.Episodes,
		EpisodesAired: wire.EpisodesAired,
		Chapters:      wire.Chapters,
		Volumes:       wire.Volumes,
		AiredOn:       wire.AiredOn.time,
		ReleasedOn:    wire.ReleasedOn.time,
	}
}

// listRateWire is one line of /api/users/{id}/{anime,manga}_rates.
type listRateWire struct {
	ID        int64        `json:"id"`
	Score     int          `json:"score"`
	Status    string       `json:"status"`
	Text      string       `json:"text"`
	Episodes  int          `json:"episodes"`
	Chapters  int          `json:"chapters"`
	Rewatches int          `json:"rewatches"`
	CreatedAt *time.Time   `json:"created_at"`
	UpdatedAt *time.Time   `json:"updated_at"`
	Anime     *contentWire `json:"anime"`
	Manga     *contentWire `json:"manga"`
}

func (wire listRateWire) toEntry(userID int64, kind rates.Kind) rates.Entry {
	entry := rates.Entry{
		ID:        wire.ID,
		UserID:    userID,
		Status:    rates.Status(wire.Status),
		Score:     wire.Score,
		Repeats:   wire.Rewatches,
		Note:      wire.Text,
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}
	if kind == rates.KindManga {
		entry.Manga = wire.Manga.toContent()
		entry.Progress = wire.Chapters
	} else {
		entry.Anime = wire.Anime.toContent()
		entry.Progress = wire.Episodes
	}
	return entry
}

// userRateWire is the v2 user_rates resource. It only references content by id.
type userRateWire struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TargetID   int64      `json:"target_id"`
	TargetType string     `json:"target_type"`
	Score      int        `json:"score"`
	Status     string     `json:"status"`
	Rewatches  int        `json:"rewatches"`
	Episodes   int        `json:"episodes"`
	Chapters   int        `json:"chapters"`
	Text       string     `json:"text"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

func (wire userRateWire) toEntry() rates.Entry {
	entry := rates.Entry{
		ID:        wire.ID,
		UserID:    wire.UserID,
		Status:    rates.Status(wire.Status),
		Score:     wire.Score,
		Repeats:   wire.Rewatches,
		Note:      wire.Text,
		CreatedAt: wire.CreatedAt,
		UpdatedAt: wire.UpdatedAt,
	}
	stub := &rates.Content{ID: wire.TargetID}
	if wire.TargetType == targetManga {
		entry.Manga = stub
		entry.Progress = wire.Chapters
	} else {
		entry.Anime = stub
		entry.Progress = wire.Episodes
	}
	return entry
}

// userRateFields is the body of create and update calls. Nil fields are omitted.
type userRateFields struct {
	UserID     int64   `json:"user_id,omitempty"`
	TargetID   int64   `json:"target_id,omitempty"`
	TargetType string  `json:"target_type,omitempty"`
	Status     *string `json:"status,omitempty"`
	Score      *int    `json:"score,omitempty"`
	Episodes   *int    `json:"episodes,omitempty"`
	Chapters   *int    `json:"chapters,omitempty"`
	Rewatches  *int    `json:"rewatches,omitempty"`
	Text       *string `json:"text,omitempty"`
}

type userRateEnvelope struct {
	UserRate userRateFields `json:"user_rate"`
}

func fieldsFromPatch(patch rates.Patch) userRateFields {
	fields := userRateFields{
		Score:     patch.Score,
		Rewatches: patch.Repeats,
		Text:      patch.Note,
	}
	if patch.Status != nil {
		fields.Status = pointer.To(string(*patch.Status))
	}
	if patch.Kind == rates.KindManga {
		fields.Chapters = patch.Progress
	} else {
		fields.Episodes = patch.Progress
	}
	return fields
}

func targetType(kind rates.Kind) string {
	if kind == rates.KindManga {
		return targetManga
	}
	return targetAnime
}

// profileWire holds the part of /api/users/{id} the badges need.
type profileWire struct {
	Stats struct {
		Statuses map[string][]struct {
			Name string `json:"name"`
			Size int    `json:"size"`
		} `json:"statuses"`
	} `json:"stats"`
}

func (wire profileWire) toCounts() rates.Counts {
	counts := rates.NewCounts()
	for kind, statuses := range wire.Stats.Statuses {
		for _, status := range statuses {
			if sizes, ok := counts[rates.Kind(kind)]; ok {
				sizes[rates.Status(status.Name)] = status.Size
			}
		}
	}
	return counts.Normalized()
}
