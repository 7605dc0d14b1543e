package providers

import (
	"bytes"
	"context"
	"io"
	"net/textproto"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/gorm"
)

// ftpConn is the part of *ftp.ServerConn the source uses
type ftpConn interface {
	Login(user, password string) error
	Retr(path string) (io.ReadCloser, error)
	FileSize(path string) (int64, error)
	Quit() error
}

type ftpDialer func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

type serverConn struct {
	*ftp.ServerConn
}

func (c *serverConn) Retr(path string) (io.ReadCloser, error) {
	return c.ServerConn.Retr(path)
}

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	conn, err := ftp.Dial(addr,
		ftp.DialWithTimeout(timeout),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	return &serverConn{ServerConn: conn}, nil
}

// FTPSource downloads feeds from FTP servers into a temporary file
type FTPSource struct {
	timeout time.Duration
	tempDir string
	dial    ftpDialer
	logger  *zap.SugaredLogger
}

// NewFTPSource creates a source; timeout bounds the control connection
func NewFTPSource(timeout time.Duration, logger *zap.SugaredLogger) *FTPSource {
	return &FTPSource{
		timeout: timeout,
		dial:    dialFTP,
		logger:  logger.Named("FTPSource"),
	}
}

func (s *FTPSource) Mode() constants.ConnectionMode {
	return constants.ConnectionFTP
}

// Download runs connect, login, RETR into a temp file, and reads it back.
// The connection and the temp file are always cleaned up.
func (s *FTPSource) Download(ctx context.Context, cfg *gorm.SupplierFeedConfig) ([]byte, error) {
	conn, err := s.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer s.quit(conn)

	remote, err := conn.Retr(cfg.FTPPath)
	if err != nil {
		code := constants.ErrCodeFTPDownload
		if isFileUnavailable(err) {
			code = constants.ErrCodeFTPFileNotFound
		}
		return nil, s.fail(cfg, constants.FTPStepDownload, code, constants.FetchReasonNetwork, err)
	}

	tmp, err := os.CreateTemp(s.tempDir, "yoco-feed-*")
	if err != nil {
		remote.Close()
		return nil, s.fail(cfg, constants.FTPStepDownload, constants.ErrCodeFTPDownload, constants.FetchReasonNetwork, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	_, copyErr := io.Copy(tmp, remote)
	closeErr := remote.Close()
	if copyErr != nil {
		return nil, s.fail(cfg, constants.FTPStepDownload, constants.ErrCodeFTPDownload, constants.FetchReasonNetwork, copyErr)
	}
	if closeErr != nil {
		return nil, s.fail(cfg, constants.FTPStepDownload, constants.ErrCodeFTPDownload, constants.FetchReasonNetwork, closeErr)
	}

	raw, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, s.fail(cfg, constants.FTPStepRead, constants.ErrCodeFTPDownload, constants.FetchReasonNetwork, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, s.fail(cfg, constants.FTPStepRead, constants.ErrCodeFetchEmpty, constants.FetchReasonEmpty, nil)
	}
	return raw, nil
}

// FileSize asks the server for the size of the remote file
func (s *FTPSource) FileSize(ctx context.Context, cfg *gorm.SupplierFeedConfig) (int64, error) {
	conn, err := s.open(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer s.quit(conn)

	size, err := conn.FileSize(cfg.FTPPath)
	if err != nil {
		code := constants.ErrCodeFTPDownload
		if isFileUnavailable(err) {
			code = constants.ErrCodeFTPFileNotFound
		}
		return 0, s.fail(cfg, constants.FTPStepDownload, code, constants.FetchReasonNetwork, err)
	}
	return size, nil
}

func (s *FTPSource) open(ctx context.Context, cfg *gorm.SupplierFeedConfig) (ftpConn, error) {
	if !cfg.FTPPassive {
		// jlaffaye/ftp only speaks passive mode (EPSV/PASV)
		s.logger.Warnw("Active FTP mode requested, using passive", "supplier_id", cfg.ID, "host", cfg.FTPHost)
	}

	conn, err := s.dial(ctx, cfg.FTPAddr(), s.timeout)
	if err != nil {
		reason := constants.FetchReasonNetwork
		if isTimeout(err) {
			reason = constants.FetchReasonTimeout
		}
		return nil, s.fail(cfg, constants.FTPStepConnect, constants.ErrCodeFTPConnect, reason, err)
	}

	if err := conn.Login(cfg.FTPUser, cfg.FTPPassword); err != nil {
		s.quit(conn)
		return nil, s.fail(cfg, constants.FTPStepLogin, constants.ErrCodeFTPLogin, constants.FetchReasonNetwork, err)
	}
	return conn, nil
}

func (s *FTPSource) quit(conn ftpConn) {
	if err := conn.Quit(); err != nil {
		s.logger.Debugw("FTP quit failed", "error", err)
	}
}

func (s *FTPSource) fail(cfg *gorm.SupplierFeedConfig, step, code, reason string, err error) error {
	return &apperrors.FetchError{
		Source: cfg.Source(),
		Mode:   constants.ConnectionFTP,
		Reason: reason,
		Step:   step,
		Code:   code,
		Err:    err,
	}
}

func isFileUnavailable(err error) bool {
	var protoErr *textproto.Error
	return errors.As(err, &protoErr) && protoErr.Code == ftp.StatusFileUnavailable
}
