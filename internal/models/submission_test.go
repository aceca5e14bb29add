package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionDataValidate(t *testing.T) {
	cases := []struct {
		name    string
		data    SubmissionData
		wantErr bool
	}{
		{"text ok", SubmissionData{Kind: SubmissionKindText, Text: "feito"}, false},
		{"text empty", SubmissionData{Kind: SubmissionKindText, Text: "   "}, true},
		{"file ok", SubmissionData{Kind: SubmissionKindFile, FileURL: "https://example.com/f.pdf"}, false},
		{"file missing", SubmissionData{Kind: SubmissionKindFile}, true},
		{"creative ok", SubmissionData{Kind: SubmissionKindCreative, CreativeURL: "https://example.com/c.png", Caption: "legenda"}, false},
		{"creative missing", SubmissionData{Kind: SubmissionKindCreative, Caption: "legenda"}, true},
		{"video ok", SubmissionData{Kind: SubmissionKindVideo, VideoURL: "https://example.com/v.mp4"}, false},
		{"video missing", SubmissionData{Kind: SubmissionKindVideo}, true},
		{"unknown kind", SubmissionData{Kind: "audio"}, true},
		{"empty kind", SubmissionData{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.data.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMissionSubmissionIsTerminal(t *testing.T) {
	for status, terminal := range map[SubmissionStatus]bool{
		SubmissionStatusPendingApproval:      false,
		SubmissionStatusSecondInstance:       false,
		SubmissionStatusReturnedToAdvertiser: false,
		SubmissionStatusApproved:             true,
		SubmissionStatusRejected:             true,
	} {
		sub := MissionSubmission{Status: status}
		assert.Equal(t, terminal, sub.IsTerminal(), "status %s", status)
	}
}
