package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ftpDialTimeout bounds the control-connection dial to a partner drop.
const ftpDialTimeout = 30 * time.Second

// DownloadFTP retrieves a roster file from a partner FTP drop into
// destDir and returns the local path. Credentials come from the URL
// userinfo; anonymous login is the fallback.
func DownloadFTP(ctx context.Context, ftpURL, destDir string) (string, error) {
	u, err := url.Parse(ftpURL)
	if err != nil {
		return "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return "", eris.New("ftp: empty path in url")
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", u.Path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(ftpDialTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", eris.Wrap(err, "ftp: dial")
	}
	defer conn.Quit()

	if err := conn.Login(user, pass); err != nil {
		return "", eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return "", eris.Wrap(err, "ftp: retrieve")
	}
	defer resp.Close()

	local := filepath.Join(destDir, filepath.Base(u.Path))
	f, err := os.Create(local)
	if err != nil {
		return "", eris.Wrap(err, "ftp: create local file")
	}
	defer f.Close()

	if _, err := io.Copy(f, resp); err != nil {
		return "", eris.Wrap(err, "ftp: write local file")
	}
	return local, nil
}
