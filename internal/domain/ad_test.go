package domain

import "testing"

func TestCanStartVideo(t *testing.T) {
	testCases := []struct {
		name   string
		status AdStatus
		video  VideoStatus
		want   bool
	}{
		{name: "completed absent", status: AdStatusCompleted, video: VideoStatusAbsent, want: true},
		{name: "completed failed video", status: AdStatusCompleted, video: VideoStatusFailed, want: true},
		{name: "completed pending video", status: AdStatusCompleted, video: VideoStatusPending, want: false},
		{name: "completed video done", status: AdStatusCompleted, video: VideoStatusCompleted, want: false},
		{name: "image still pending", status: AdStatusPending, video: VideoStatusAbsent, want: false},
		{name: "image failed", status: AdStatusFailed, video: VideoStatusAbsent, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ad := &Ad{Status: tc.status, VideoStatus: tc.video}
			if got := ad.CanStartVideo(); got != tc.want {
				t.Fatalf("CanStartVideo() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAdStatusTerminal(t *testing.T) {
	if AdStatusPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
	if !AdStatusCompleted.Terminal() || !AdStatusFailed.Terminal() {
		t.Fatal("completed and failed must be terminal")
	}
}

func TestPromptPlanIsZero(t *testing.T) {
	if !(PromptPlan{}).IsZero() {
		t.Fatal("empty plan should be zero")
	}
	if (PromptPlan{ImageEditPrompt: "x"}).IsZero() {
		t.Fatal("plan with image prompt is not zero")
	}
}
