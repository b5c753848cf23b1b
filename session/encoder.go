package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const formatVersionCurrent = 1

const (
	flagActive       = 1 << 0
	flagNeverExpires = 1 << 1
)

var reasonCodes = map[Reason]byte{
	ReasonNone:        0,
	ReasonLogout:      1,
	ReasonExpired:     2,
	ReasonRevoked:     3,
	ReasonDeviceLimit: 4,
	ReasonAdminAction: 5,
}

var reasonNames = map[byte]Reason{
	0: ReasonNone,
	1: ReasonLogout,
	2: ReasonExpired,
	3: ReasonRevoked,
	4: ReasonDeviceLimit,
	5: ReasonAdminAction,
}

func writeString(buf *bytes.Buffer, field, value string) error {
	if len(value) > 255 {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(value)))
	buf.WriteString(value)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(formatVersionCurrent)

	if err := writeString(&buf, "sessionID", s.ID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, "principalID", s.PrincipalID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, "fingerprint", s.Fingerprint); err != nil {
		return nil, err
	}
	if err := writeString(&buf, "userAgent", s.UserAgent); err != nil {
		return nil, err
	}
	if err := writeString(&buf, "platform", s.Platform); err != nil {
		return nil, err
	}
	if err := writeString(&buf, "ipAddress", s.IPAddress); err != nil {
		return nil, err
	}

	var flags byte
	if s.Active {
		flags |= flagActive
	}
	if s.NeverExpires {
		flags |= flagNeverExpires
	}
	buf.WriteByte(flags)

	reasonCode, ok := reasonCodes[s.Reason]
	if !ok {
		return nil, errors.New("unknown termination reason")
	}
	buf.WriteByte(reasonCode)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastActivityAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != formatVersionCurrent {
		return nil, errors.New("invalid session record version")
	}

	s := &Session{}

	if s.ID, err = readString(reader); err != nil {
		return nil, err
	}
	if s.PrincipalID, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Fingerprint, err = readString(reader); err != nil {
		return nil, err
	}
	if s.UserAgent, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Platform, err = readString(reader); err != nil {
		return nil, err
	}
	if s.IPAddress, err = readString(reader); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Active = flags&flagActive != 0
	s.NeverExpires = flags&flagNeverExpires != 0

	reasonCode, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	reason, ok := reasonNames[reasonCode]
	if !ok {
		return nil, errors.New("unknown termination reason code")
	}
	s.Reason = reason

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LastActivityAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
