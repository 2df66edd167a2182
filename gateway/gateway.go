// Package gateway bridges the FTP engine's callbacks to the session registry.
// It answers login attempts and confines each authenticated connection to its
// session's root directory. It does no settlement detection of its own; files
// written through here are picked up by the directory watcher like any other
// write.
package gateway

import (
	"crypto/tls"
	"errors"
	"fmt"

	ftpserver "github.com/fclairamb/ftpserverlib"

	"github.com/ayato-h/albumdrop/tool"
)

// Authenticator checks transfer credentials and returns the confined root.
type Authenticator interface {
	Authenticate(username, password string) (string, error)
}

// Config carries engine listen settings; everything transport-level
// (framing, passive ports) stays the engine's problem.
type Config struct {
	ListenAddr       string
	PassivePortStart int
	PassivePortEnd   int
}

// Driver implements ftpserver.MainDriver on top of the registry.
type Driver struct {
	auth     Authenticator
	settings ftpserver.Settings
}

var _ ftpserver.MainDriver = (*Driver)(nil)

func NewDriver(auth Authenticator, cfg Config) *Driver {
	settings := ftpserver.Settings{
		ListenAddr: cfg.ListenAddr,
	}
	if cfg.PassivePortStart > 0 && cfg.PassivePortEnd >= cfg.PassivePortStart {
		settings.PassiveTransferPortRange = &ftpserver.PortRange{
			Start: cfg.PassivePortStart,
			End:   cfg.PassivePortEnd,
		}
	}
	return &Driver{auth: auth, settings: settings}
}

// GetSettings implements ftpserver.MainDriver.
func (d *Driver) GetSettings() (*ftpserver.Settings, error) {
	return &d.settings, nil
}

// ClientConnected implements ftpserver.MainDriver.
func (d *Driver) ClientConnected(cc ftpserver.ClientContext) (string, error) {
	tool.DefaultLogger.Debugf("[Gateway] Client #%d connected from %s", cc.ID(), cc.RemoteAddr())
	return "albumdrop ready", nil
}

// ClientDisconnected implements ftpserver.MainDriver.
func (d *Driver) ClientDisconnected(cc ftpserver.ClientContext) {
	tool.DefaultLogger.Debugf("[Gateway] Client #%d disconnected", cc.ID())
}

// AuthUser checks the credentials against the registry. On success the
// connection gets a filesystem rooted at the session directory; nothing
// outside that root is reachable through it.
func (d *Driver) AuthUser(cc ftpserver.ClientContext, user, pass string) (ftpserver.ClientDriver, error) {
	root, err := d.auth.Authenticate(user, pass)
	if err != nil {
		tool.DefaultLogger.Warnf("[Gateway] Login denied for %q", user)
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	tool.DefaultLogger.Infof("[Gateway] Login ok: user=%s root=%s", user, root)
	return newSessionFs(root), nil
}

// GetTLSConfig implements ftpserver.MainDriver. Transport security is not
// this gateway's concern.
func (d *Driver) GetTLSConfig() (*tls.Config, error) {
	return nil, errors.New("TLS is not configured")
}
