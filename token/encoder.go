package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const tokenFormatVersionV1 = 1

func encode(t *Token) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tokenFormatVersionV1)

	if len(t.AccountID) > 255 {
		return nil, errors.New("account id too long")
	}
	buf.WriteByte(byte(len(t.AccountID)))
	buf.WriteString(t.AccountID)

	if len(t.Role) > 255 {
		return nil, errors.New("role too long")
	}
	buf.WriteByte(byte(len(t.Role)))
	buf.WriteString(t.Role)

	if err := binary.Write(&buf, binary.BigEndian, t.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, t.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decode(data []byte) (*Token, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenFormatVersionV1 {
		return nil, errors.New("unsupported token format version")
	}

	accountID, err := readString(reader)
	if err != nil {
		return nil, err
	}
	role, err := readString(reader)
	if err != nil {
		return nil, err
	}

	var created, expires int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in token record")
	}

	return &Token{
		AccountID: accountID,
		Role:      role,
		CreatedAt: time.UnixMilli(created),
		ExpiresAt: time.UnixMilli(expires),
	}, nil
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
