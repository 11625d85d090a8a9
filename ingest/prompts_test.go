package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptEmbedsImagesAndProduct(t *testing.T) {
	urls := []string{"https://cdn.example.com/1.webp", "https://cdn.example.com/2.webp"}
	prompt, err := BuildPrompt("distance", "Pro V1", urls)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Pro V1")
	for _, u := range urls {
		assert.Contains(t, prompt, u)
	}
	assert.Contains(t, prompt, "<strong>title</strong>")
	assert.Contains(t, prompt, "비거리(distance)")
}

func TestBuildPromptPicksTemplateByCategory(t *testing.T) {
	urls := []string{"https://cdn.example.com/1.webp"}
	golf, err := BuildPrompt("golf", "X", urls)
	require.NoError(t, err)
	tech, err := BuildPrompt("Technology", "X", urls)
	require.NoError(t, err)
	general, err := BuildPrompt("kitchen", "X", urls)
	require.NoError(t, err)

	assert.NotEqual(t, golf, tech)
	assert.NotEqual(t, tech, general)
	assert.NotEqual(t, golf, general)

	golfball, err := BuildPrompt("golfball", "X", urls)
	require.NoError(t, err)
	assert.Equal(t, golf, golfball)
}

func TestBuildExtractionPrompt(t *testing.T) {
	prompt, err := BuildExtractionPrompt([]string{"https://cdn.example.com/1.webp"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "https://cdn.example.com/1.webp")
	assert.Contains(t, prompt, `"productName"`)
}

func TestParseIdentification(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Identification
		wantErr bool
	}{
		{"plain", `{"productName":"Pro V1","category":"Golf"}`, Identification{"Pro V1", "golf"}, false},
		{"fenced", "```json\n{\"productName\": \"Chrome Soft\", \"category\": \"golf\"}\n```", Identification{"Chrome Soft", "golf"}, false},
		{"prose", `확인 결과: {"productName":"갤럭시 S24","category":"tech"} 입니다.`, Identification{"갤럭시 S24", "tech"}, false},
		{"no category", `{"productName":"Mug"}`, Identification{"Mug", ""}, false},
		{"missing name", `{"productName":"  ","category":"golf"}`, Identification{}, true},
		{"not json", "모르겠습니다", Identification{}, true},
		{"empty", "", Identification{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentification(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
