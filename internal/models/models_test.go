package models

import "testing"

func TestPersistedTrack(t *testing.T) {
	t.Run("NewPersistedTrack", func(t *testing.T) {
		track := NewPersistedTrack(3, "spotify", "abc", Track{Title: "Song", Artist: "Artist", Duration: 200})

		if track.Sequence() != 3 || track.Service() != "spotify" || track.ServiceID() != "abc" {
			t.Errorf("unexpected fields: %+v", track)
		}
		if track.CreatedAt().IsZero() || !track.CreatedAt().Equal(track.UpdatedAt()) {
			t.Error("timestamps should be set and equal on creation")
		}
		if track.DeletedAt() != nil {
			t.Error("new track should not be deleted")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			track   *PersistedTrack
			wantErr bool
		}{
			{"valid", NewPersistedTrack(0, "spotify", "id", Track{Title: "t"}), false},
			{"missing service", NewPersistedTrack(0, "", "id", Track{Title: "t"}), true},
			{"missing service id", NewPersistedTrack(0, "spotify", "", Track{Title: "t"}), true},
			{"missing title", NewPersistedTrack(0, "spotify", "id", Track{}), true},
			{"negative duration", NewPersistedTrack(0, "spotify", "id", Track{Title: "t", Duration: -1}), true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.track.Validate(); (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})
}
