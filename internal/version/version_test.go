package version

import "testing"

func TestBuildInfo(t *testing.T) {
	origVersion, origCommit, origBuild := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuild
	})

	tests := []struct {
		name                  string
		version, commit, when string
		wantString            string
		wantUA                string
	}{
		{"unset", "dev", "unknown", "unknown", "dev (unknown) built unknown", "botwatch/dev"},
		{"release", "0.3.0", "abc1234", "2026-10-16T12:00:00Z", "0.3.0 (abc1234) built 2026-10-16T12:00:00Z", "botwatch/0.3.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, BuildTime = tt.version, tt.commit, tt.when

			if got := String(); got != tt.wantString {
				t.Errorf("String() = %q, want %q", got, tt.wantString)
			}
			if got := UserAgent(); got != tt.wantUA {
				t.Errorf("UserAgent() = %q, want %q", got, tt.wantUA)
			}
			want := Info{Version: tt.version, Commit: tt.commit, BuildTime: tt.when}
			if got := Get(); got != want {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}
		})
	}
}
