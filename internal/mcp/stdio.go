package mcp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize 单条入站消息上限 4MB
const MaxMessageSize = 4 * 1024 * 1024

// ErrMessageTooLarge 超长消息已被整行丢弃，读取可以继续
var ErrMessageTooLarge = fmt.Errorf("message exceeds maximum %d bytes", MaxMessageSize)

// ReadLineMessage 读取一条以换行结尾的消息，跳过空行
// 超长行不会整体进入内存，读到行尾后返回 ErrMessageTooLarge
func ReadLineMessage(r *bufio.Reader) ([]byte, error) {
	for {
		line, err := readBoundedLine(r, MaxMessageSize)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		if len(trimmed) > MaxMessageSize {
			return nil, ErrMessageTooLarge
		}
		return trimmed, nil
	}
}

// readBoundedLine 读到换行或 EOF，超过 limit 时继续消费到行尾再报错
func readBoundedLine(r *bufio.Reader, limit int) ([]byte, error) {
	var (
		buf      []byte
		oversize bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversize {
			if len(buf)+len(chunk) > limit+2 { // 允许 \r\n
				oversize = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			if oversize {
				return nil, ErrMessageTooLarge
			}
			return buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if oversize {
				return nil, ErrMessageTooLarge
			}
			return buf, io.EOF
		default:
			return nil, fmt.Errorf("read message: %w", err)
		}
	}
}

// WriteLineMessage 写出一条消息并追加换行
func WriteLineMessage(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return errors.New("message is empty")
	}
	if bytes.IndexByte(data, '\n') >= 0 {
		return errors.New("message contains embedded newline")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
