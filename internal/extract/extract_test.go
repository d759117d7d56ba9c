package extract

import (
	"fmt"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/vk-downloader"
)

func playerPage(config string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head>
<script type="module">import "/js/common.js";</script>
<script type="text/javascript">var ignored = {"url1080": "https:\/\/wrong.example\/1080.mp4"};</script>
<script type="module">ajax.post("al_video.php", %s);</script>
</head><body></body></html>`, config)
}

func TestExtract(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	page, err := Extract(playerPage(`{"player": {"params": [{
		"url720": "https:\/\/cdn.example\/video\/720.mp4?extra=a&amp=b",
		"url240":"https:\/\/cdn.example\/video\/240.mp4",
		"url480": "https:\/\/cdn.example\/video\/480.mp4",
		"title": "Привет \"world\"",
		"url720": "https:\/\/cdn.example\/video\/duplicate.mp4"
	}]}}`))
	require.NoError(err)

	assert.Equal(`Привет "world"`, page.Title)
	require.Len(page.Candidates, 3)
	assert.Equal([]string{"240p", "480p", "720p"}, vk_downloader.Labels(page.Candidates))
	assert.Equal("https://cdn.example/video/240.mp4", page.Candidates[0].URL)
	// First URL for a resolution wins
	assert.Equal("https://cdn.example/video/720.mp4?extra=a&amp=b", page.Candidates[2].URL)
	for _, c := range page.Candidates {
		assert.Equal(page.Title, c.Title)
	}
}

func TestExtract_SingleStreamNoTitle(t *testing.T) {
	assert := assert_.New(t)

	page, err := Extract(playerPage(`{"url360": "https:\/\/cdn.example\/360.mp4"}`))
	if assert.NoError(err) {
		assert.Equal("", page.Title)
		assert.Len(page.Candidates, 1)
		assert.Equal(vk_downloader.Resolution(360), page.Candidates[0].Resolution)
	}
}

func TestExtract_NoVideo(t *testing.T) {
	assert := assert_.New(t)

	cases := map[string]string{
		"empty":           "",
		"no player":       "<html><body><p>private video</p></body></html>",
		"no streams":      playerPage(`{"title": "nothing here"}`),
		"wrong type":      strings.Replace(playerPage(`{"url360": "x"}`), `type="module">ajax`, `type="text/javascript">ajax`, 1),
		"two players":     playerPage(`{"url360": "a"}`) + `<script type="module">al_video.php {"url480": "b"}</script>`,
		"zero resolution": playerPage(`{"url0": "https:\/\/cdn.example\/0.mp4"}`),
	}
	for name, html := range cases {
		_, err := Extract(html)
		assert.ErrorIs(err, ErrNoVideo, name)
	}
}

func TestUnescape(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("https://a/b", unescape(`https:\/\/a\/b`))
	assert.Equal("é", unescape(`é`))
	// Invalid escapes fall back to only undoing \/
	assert.Equal(`a/b\q`, unescape(`a\/b\q`))
}
