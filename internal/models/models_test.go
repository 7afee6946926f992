package models

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tc := []struct {
		name    string
		model   Model
		wantErr bool
	}{
		{name: "artist ok", model: &Artist{RemoteID: "A1", Name: "Artist"}},
		{name: "artist missing remote id", model: &Artist{Name: "Artist"}, wantErr: true},
		{name: "album ok", model: &Album{RemoteID: "AL1", Name: "Album"}},
		{name: "album blank name", model: &Album{RemoteID: "AL1", Name: "  "}, wantErr: true},
		{name: "track ok", model: &Track{RemoteID: "T1", Name: "Song"}},
		{name: "track missing remote id", model: &Track{Name: "Song"}, wantErr: true},
		{name: "process ok", model: NewImportProcess(2)},
		{name: "process bad status", model: &ImportProcess{Status: "paused"}, wantErr: true},
		{name: "process counters overflow", model: &ImportProcess{Status: ImportRunning, ArtistsTotal: 1, ArtistsImported: 1, ArtistsFailed: 1}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuplicateFeatureValues(t *testing.T) {
	f := AudioFeatures{
		Acousticness: 0.1, Danceability: 0.2, Energy: 0.3, Instrumentalness: 0.4, Liveness: 0.5,
		Loudness: -6.5, Speechiness: 0.06, TimeSignature: 4, Tempo: 124.0, Valence: 0.7,
	}

	values := f.DuplicateFeatureValues()
	if len(values) != len(DuplicateFeatureColumns) {
		t.Fatalf("expected %d values, got %d", len(DuplicateFeatureColumns), len(values))
	}
	if values[7] != 4 {
		t.Errorf("expected time_signature at index 7, got %v", values[7])
	}
	if values[8] != 124.0 {
		t.Errorf("expected tempo at index 8, got %v", values[8])
	}
}

func TestImportProcessLifecycle(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		p := NewImportProcess(2)
		p.Start()
		if p.Status != ImportRunning || p.StartedAt == nil {
			t.Fatalf("expected running process with start time, got %+v", p)
		}
		p.ArtistsImported = 2
		p.Finish(nil)
		if p.Status != ImportCompleted || !p.Done() {
			t.Errorf("expected completed process, got %s", p.Status)
		}
	})

	t.Run("fails on artist failures", func(t *testing.T) {
		p := NewImportProcess(2)
		p.Start()
		p.ArtistsImported, p.ArtistsFailed = 1, 1
		p.Finish(nil)
		if p.Status != ImportFailed {
			t.Errorf("expected failed process, got %s", p.Status)
		}
		if p.ErrorMessage == "" {
			t.Error("expected error message")
		}
	})

	t.Run("fails on error", func(t *testing.T) {
		p := NewImportProcess(1)
		p.Finish(errors.New("database locked"))
		if p.Status != ImportFailed || p.ErrorMessage != "database locked" {
			t.Errorf("unexpected process state %+v", p)
		}
	})
}
