package remote

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/profile"
)

const copyChunkSize = 32 * 1024

// SFTPClient is the live Client implementation over SSH/SFTP.
type SFTPClient struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// NewSFTPClient returns an unconnected SFTP client.
func NewSFTPClient() *SFTPClient {
	return &SFTPClient{}
}

// SFTPFactory creates one SFTP client per use.
func SFTPFactory() Client {
	return NewSFTPClient()
}

// Connect dials host:port and authenticates. Dial failures are
// connection errors; handshake failures are authentication errors.
func (c *SFTPClient) Connect(ctx context.Context, creds profile.Credentials, method profile.AuthMethod) error {
	addr := creds.Addr()

	auth, err := authMethods(creds, method, addr)
	if err != nil {
		return err
	}

	config := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.NewConnectionError(err, addr)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return errors.NewAuthError(err, addr)
	}

	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return errors.NewConnectionError(err, addr)
	}

	c.sshClient = sshClient
	c.sftpClient = sftpClient

	return nil
}

// authMethods resolves the SSH auth methods for the profile's
// authentication kind.
//
// TODO: implement key-based authentication (parse the private key with
// ssh.ParsePrivateKey / ParsePrivateKeyWithPassphrase and use
// ssh.PublicKeys). Until then the key kinds fail authentication.
func authMethods(creds profile.Credentials, method profile.AuthMethod, addr string) ([]ssh.AuthMethod, error) {
	switch method {
	case profile.AuthPassword:
		if creds.Password == "" {
			return nil, errors.NewCredentialsError(errors.New("password is required"), addr)
		}
		return []ssh.AuthMethod{ssh.Password(creds.Password)}, nil
	case profile.AuthKey, profile.AuthPasswordKey:
		return nil, errors.NewAuthError(errors.New("key-based authentication is not implemented"), addr)
	default:
		return nil, errors.NewCredentialsError(errors.New("unknown authentication method"), addr)
	}
}

// List returns the entries of a remote directory.
func (c *SFTPClient) List(_ context.Context, path string) ([]Entry, error) {
	if c.sftpClient == nil {
		return nil, errors.ErrNotConnected
	}

	infos, err := c.sftpClient.ReadDir(path)
	if err != nil {
		return nil, errors.NewKind(errors.KindPathNotFound, err, path)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:  info.Name(),
			Size:  info.Size(),
			IsDir: info.IsDir(),
		})
	}

	return entries, nil
}

// Upload streams r to remotePath.
func (c *SFTPClient) Upload(ctx context.Context, r io.Reader, remotePath string, progress func(int64)) error {
	if c.sftpClient == nil {
		return errors.ErrNotConnected
	}

	dst, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return errors.NewKind(errors.KindUploadFailed, err, remotePath)
	}
	defer dst.Close()

	if err := copyWithProgress(ctx, dst, r, progress); err != nil {
		return errors.NewKind(errors.KindUploadFailed, err, remotePath)
	}

	return nil
}

// Download streams remotePath to w.
func (c *SFTPClient) Download(ctx context.Context, remotePath string, w io.Writer, progress func(int64)) error {
	if c.sftpClient == nil {
		return errors.ErrNotConnected
	}

	src, err := c.sftpClient.Open(remotePath)
	if err != nil {
		return errors.NewKind(errors.KindPathNotFound, err, remotePath)
	}
	defer src.Close()

	if err := copyWithProgress(ctx, w, src, progress); err != nil {
		return errors.NewKind(errors.KindDownloadFailed, err, remotePath)
	}

	return nil
}

// Mkdir creates a remote directory, including intermediate segments.
func (c *SFTPClient) Mkdir(_ context.Context, path string) error {
	if c.sftpClient == nil {
		return errors.ErrNotConnected
	}

	return c.sftpClient.MkdirAll(path)
}

// Close releases the SFTP session and the SSH connection.
func (c *SFTPClient) Close() error {
	var firstErr error

	if c.sftpClient != nil {
		if err := c.sftpClient.Close(); err != nil {
			firstErr = err
		}
		c.sftpClient = nil
	}

	if c.sshClient != nil {
		if err := c.sshClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.sshClient = nil
	}

	return firstErr
}

// copyWithProgress copies in fixed chunks, observing ctx between chunks
// so a cancelled transfer stops at the next I/O step.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, progress func(int64)) error {
	buf := make([]byte, copyChunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			if writeErr != nil {
				return writeErr
			}
			if progress != nil {
				progress(int64(written))
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
