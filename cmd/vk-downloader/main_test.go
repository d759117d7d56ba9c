package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/vk-downloader"
)

func runApp(args ...string) error {
	app := newApp(context.Background(), zap.NewAtomicLevel())
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	return app.Run(append([]string{"vk-downloader"}, args...))
}

func TestApp_NoURLs(t *testing.T) {
	assert_.NoError(t, runApp("--target", t.TempDir()))
}

func TestApp_InvalidJobs(t *testing.T) {
	assert_.ErrorIs(t, runApp("--jobs", "0", "https://vk.com/video-1_2"), vk_downloader.ErrInvalidConfig)
}

func TestApp_FailedPage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dir := t.TempDir()
	err := runApp("--target", dir, server.URL+"/video-1_2")
	var statusErr *vk_downloader.StatusError
	if assert_.ErrorAs(t, err, &statusErr) {
		assert_.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	}
}

func TestApp_FetchStream(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "video bytes")
	}))
	defer server.Close()

	output := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(runApp(fetchStreamCommand, "--output", output, server.URL+"/720.mp4"))
	data, err := os.ReadFile(output)
	require.NoError(err)
	assert.Equal("video bytes", string(data))

	assert.Error(runApp(fetchStreamCommand, "--output", output))
	assert.Error(runApp(fetchStreamCommand, server.URL))
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(os.WriteFile(path, []byte("jobs: 2\nquality: worst\ntarget_dir: /from/file\n"), 0600))

	var cfg vk_downloader.Config
	app := newApp(context.Background(), zap.NewAtomicLevel())
	app.Action = func(c *cli.Context) error {
		var err error
		cfg, err = loadConfig(c)
		return err
	}
	require.NoError(app.Run([]string{"vk-downloader", "--config", path, "--jobs", "6"}))
	assert.Equal(6, cfg.Jobs)
	assert.Equal("worst", cfg.Quality)
	assert.Equal("/from/file", cfg.TargetDir)
	assert.Equal(vk_downloader.DefaultUserAgent, cfg.UserAgent)
}

func TestReadBatchFile(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(os.WriteFile(path, []byte(`
# favourites
https://vk.com/video-1_2

  https://vk.com/video-3_4  
#https://vk.com/video-5_6
`), 0600))

	urls, err := readBatchFile(path)
	require.NoError(err)
	assert.Equal([]string{"https://vk.com/video-1_2", "https://vk.com/video-3_4"}, urls)

	_, err = readBatchFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(err, os.ErrNotExist)
}
