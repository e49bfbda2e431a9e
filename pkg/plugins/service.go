package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/tankobonapp/tankobon/pkg/config"
)

type Service struct {
	cfg *config.Config
}

func NewService(cfg *config.Config) *Service {
	return &Service{cfg: cfg}
}

// ListPlugins inspects every .js file in the plugin directory. Scripts that
// fail to parse or declare no metadata are logged and skipped; one broken
// file must not hide the rest.
func (svc *Service) ListPlugins(ctx context.Context) ([]*Info, error) {
	entries, err := os.ReadDir(svc.cfg.PluginDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	log := logger.FromContext(ctx)

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".js") {
			continue
		}

		info, err := InspectFile(filepath.Join(svc.cfg.PluginDir(), entry.Name()))
		if err != nil {
			log.Warn("skipping unreadable plugin script", logger.Data{"file": entry.Name(), "error": err.Error()})
			continue
		}

		info.File = entry.Name()
		infos = append(infos, info)
	}

	return infos, nil
}
