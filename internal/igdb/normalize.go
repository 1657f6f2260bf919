package igdb

import (
	"strings"
	"time"

	"gameboxr/pkg/models"
)

const (
	thumbSize    = "/t_thumb/"
	coverSize    = "/t_1080p/"
	isoDateShort = "2006-01-02"
)

// Normalize maps one upstream record onto a GameSummary
func Normalize(raw RawGame) models.GameSummary {
	return models.GameSummary{
		GameID:      raw.ID,
		Title:       raw.Name,
		Cover:       coverURL(raw.Cover),
		Released:    released(raw),
		Rating:      raw.Rating,
		TotalRating: raw.TotalRating,
		Platforms:   names(raw.Platforms),
		Genres:      names(raw.Genres),
	}
}

// NormalizeAll maps records in order
func NormalizeAll(raws []RawGame) []models.GameSummary {
	out := make([]models.GameSummary, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// coverURL upgrades IGDB's protocol-relative thumbnail URL to the absolute 1080p variant
func coverURL(cover *RawCover) *string {
	if cover == nil || cover.URL == "" {
		return nil
	}
	url := cover.URL
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	url = strings.Replace(url, thumbSize, coverSize, 1)
	return &url
}

// released takes the earliest release date. first_release_date is only
// consulted when release_dates is absent or empty.
func released(raw RawGame) *string {
	if dates, listed := releaseDates(raw.ReleaseDates); listed {
		if len(dates) == 0 {
			return nil
		}
		earliest := dates[0]
		for _, d := range dates[1:] {
			if d < earliest {
				earliest = d
			}
		}
		return isoDate(earliest)
	}
	if raw.FirstReleaseDate != nil {
		return isoDate(*raw.FirstReleaseDate)
	}
	return nil
}

// isoDate renders epoch seconds as a UTC calendar date
func isoDate(epochSeconds float64) *string {
	s := time.UnixMilli(int64(epochSeconds * 1000)).UTC().Format(isoDateShort)
	return &s
}
