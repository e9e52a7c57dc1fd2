// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qeeg

import (
	"reflect"
	"testing"
)

func TestBrodmannAreas(t *testing.T) {
	tests := []struct {
		channel string
		want    []string
	}{
		{"Fp1", []string{"BA10", "BA11"}},
		{"fp2", []string{"BA10", "BA11"}},
		{"F3", []string{"BA6", "BA8"}},
		{"C4", []string{"BA1", "BA2", "BA3", "BA4"}},
		{"O1", []string{"BA17", "BA18"}},
		{"EEG F4-A1", []string{"BA6", "BA8"}},
		{"Cz", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			got := BrodmannAreas(tt.channel)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BrodmannAreas(%q) = %v, want %v", tt.channel, got, tt.want)
			}
		})
	}
}

func TestCanonicalSite(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"F3", "F3"},
		{"EEG F3-A1", "F3"},
		{"F3-REF", "F3"},
		{" O2 ", "O2"},
		{"Fp1 LE", "Fp1"},
	}
	for _, tt := range tests {
		if got := CanonicalSite(tt.in); got != tt.want {
			t.Errorf("CanonicalSite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHomologousPairs(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   [][2]string
	}{
		{
			name:   "full frontal and occipital montage",
			labels: []string{"Fp1", "Fp2", "F3", "F4", "O1", "O2"},
			want:   [][2]string{{"Fp1", "Fp2"}, {"F3", "F4"}, {"O1", "O2"}},
		},
		{
			name:   "missing homologue",
			labels: []string{"F3", "O1", "O2"},
			want:   [][2]string{{"O1", "O2"}},
		},
		{
			name:   "midline channels have no pair",
			labels: []string{"Cz", "Fz"},
			want:   nil,
		},
		{
			name:   "referenced labels pair by site",
			labels: []string{"EEG F3-A1", "EEG F4-A1"},
			want:   [][2]string{{"EEG F3-A1", "EEG F4-A1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HomologousPairs(tt.labels)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("HomologousPairs(%v) = %v, want %v", tt.labels, got, tt.want)
			}
		})
	}
}

func TestBandByName(t *testing.T) {
	b, ok := BandByName("Alpha")
	if !ok || b.Lo != 8 || b.Hi != 12 {
		t.Errorf("BandByName(Alpha) = %+v, %v", b, ok)
	}
	if _, ok := BandByName("Gamma"); ok {
		t.Error("BandByName(Gamma) should not exist")
	}
}
