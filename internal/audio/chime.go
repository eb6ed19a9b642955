package audio

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Hint keys read from toast options.
const (
	HintSoundFile     = "sound-file"
	HintSuppressSound = "suppress-sound"
)

// Chime plays a sound whenever a toast is shown, chosen by the toast's
// sound-file hint or else by its urgency.
type Chime struct {
	mu      sync.RWMutex
	cfg     *config.DaemonConfig
	onError func(error)

	logger  *slog.Logger
	player  *Player
	watcher *Watcher
	remove  func()
}

// NewChime creates a Chime for m. Sounds play only while audio is enabled in cfg.
func NewChime(m *stack.Manager, cfg *config.DaemonConfig, logger *slog.Logger) *Chime {
	return newChime(m, cfg, NewPlayer(logger), logger)
}

func newChime(m *stack.Manager, cfg *config.DaemonConfig, player *Player, logger *slog.Logger) *Chime {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	c := &Chime{
		cfg:     cfg,
		logger:  logger,
		player:  player,
		watcher: NewWatcher(player, logger),
	}
	c.applyVolume(cfg)
	c.remove = m.Observe(c.observe)
	return c
}

// OnError sets a callback for sounds that fail to play.
func (c *Chime) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Start preloads the configured sounds and watches them for changes.
func (c *Chime) Start(ctx context.Context) error {
	c.preload()
	return c.watcher.Start(ctx)
}

// Stop detaches from the stack and releases the speaker.
func (c *Chime) Stop() {
	c.remove()
	c.watcher.Stop()
	c.player.Close()
}

// Reconfigure applies a reloaded config.
func (c *Chime) Reconfigure(cfg *config.DaemonConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	c.applyVolume(cfg)
	c.player.ClearCache()
	c.preload()
}

func (c *Chime) applyVolume(cfg *config.DaemonConfig) {
	c.player.SetVolume(float64(cfg.Audio.Volume) / 100)
}

func (c *Chime) config() *config.DaemonConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *Chime) preload() {
	cfg := c.config()
	if !cfg.Audio.Enabled {
		return
	}
	for _, u := range []model.Urgency{model.UrgencyLow, model.UrgencyNormal, model.UrgencyCritical} {
		path := cfg.SoundForUrgency(u)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			c.logger.Warn("sound file not found", "urgency", u, "path", path)
			continue
		}
		if err := c.player.Preload(path); err != nil {
			c.logger.Warn("failed to preload sound", "path", path, "error", err)
		}
		if err := c.watcher.Watch(path); err != nil {
			c.logger.Warn("failed to watch sound", "path", path, "error", err)
		}
	}
}

func (c *Chime) observe(ev stack.Event) {
	if ev.Kind != stack.EventShown {
		return
	}
	path := c.SoundFor(ev.Toast)
	if path == "" {
		return
	}
	if err := c.player.Play(path); err != nil {
		c.logger.Warn("failed to play sound", "id", ev.ID, "path", path, "error", err)
		c.mu.RLock()
		onError := c.onError
		c.mu.RUnlock()
		if onError != nil {
			onError(err)
		}
	}
}

// SoundFor returns the sound a toast plays when shown, or "" for none.
func (c *Chime) SoundFor(t model.Toast) string {
	cfg := c.config()
	if !cfg.Audio.Enabled {
		return ""
	}
	if suppress, _ := t.Options.Hints[HintSuppressSound].(bool); suppress {
		return ""
	}
	if path := t.Options.Hint(HintSoundFile); path != "" {
		return path
	}
	return cfg.SoundForUrgency(t.Options.UrgencyOr(model.UrgencyNormal))
}
