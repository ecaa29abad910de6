// Package media resolves uploaded marker icons to public URLs
package media

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/storemap/internal/valkeystore"
)

// IconDir is the media sub-directory holding the marker icons
const IconDir = "contact/map/marker"

type (
	// Remote is a storage the local media directory is synced from
	Remote interface {
		Get(ctx context.Context, key string) ([]byte, error)
	}

	// Resolver maps icon names to URLs below BaseURL
	Resolver struct {
		Dir     string
		BaseURL string
		Remote  Remote
	}
)

// IconURL returns the public URL of the icon. When the icon is missing
// locally it is fetched from the remote storage first. An empty string
// means no icon is available.
func (r Resolver) IconURL(ctx context.Context, icon string) string {
	icon = strings.TrimLeft(path.Clean("/"+icon), "/")
	if icon == "" || icon == "." {
		return ""
	}

	rel := path.Join(IconDir, icon)
	local := filepath.Join(r.Dir, filepath.FromSlash(rel))

	if !isFile(local) && r.Remote != nil {
		if err := r.sync(ctx, rel, local); err != nil {
			logrus.WithError(err).WithField("icon", icon).Warn("syncing marker icon")
		}
	}

	if !isFile(local) {
		return ""
	}

	return strings.TrimRight(r.BaseURL, "/") + "/" + rel
}

func (r Resolver) sync(ctx context.Context, rel, local string) error {
	data, err := r.Remote.Get(ctx, rel)
	if err != nil {
		if errors.Cause(err) == valkeystore.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "fetching from remote storage")
	}

	if err = os.MkdirAll(filepath.Dir(local), 0o750); err != nil {
		return errors.Wrap(err, "creating icon directory")
	}

	return errors.Wrap(os.WriteFile(local, data, 0o644), "writing icon") //#nosec:G306 // Served as public media
}

func isFile(fn string) bool {
	s, err := os.Stat(fn)
	return err == nil && !s.IsDir()
}
