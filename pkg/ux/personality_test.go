// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import "testing"

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		in   string
		want PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"f", PersonalityFull},
		{"standard", PersonalityStandard},
		{"std", PersonalityStandard},
		{"minimal", PersonalityMinimal},
		{"m", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"MACHINE", PersonalityMachine},
		{"bogus", PersonalityStandard},
		{"", PersonalityStandard},
	}

	for _, tt := range tests {
		if got := ParsePersonalityLevel(tt.in); got != tt.want {
			t.Errorf("ParsePersonalityLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetPersonalityLevel(t *testing.T) {
	original := GetPersonality()
	defer SetPersonality(original)

	SetPersonalityLevel(PersonalityMinimal)
	if GetPersonality().Level != PersonalityMinimal {
		t.Errorf("expected minimal, got %v", GetPersonality().Level)
	}

	SetPersonality(Personality{Level: PersonalityMachine, ShowSources: false})
	p := GetPersonality()
	if p.Level != PersonalityMachine || p.ShowSources {
		t.Errorf("expected machine without sources, got %+v", p)
	}
}

func TestShouldShowProgress(t *testing.T) {
	original := GetPersonality()
	defer SetPersonality(original)

	SetPersonalityLevel(PersonalityMachine)
	if ShouldShowProgress() {
		t.Error("machine mode should not show progress")
	}

	SetPersonalityLevel(PersonalityStandard)
	if !ShouldShowProgress() {
		t.Error("standard mode should show progress")
	}
}
