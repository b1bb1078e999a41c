package models

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCorruptRecord is returned when stored bytes do not decode into the expected type.
var ErrCorruptRecord = errors.New("corrupt record")

// DiscriminatorSize is the length of the type tag prefixing every record.
const DiscriminatorSize = 8

// ProfileSize is the exact encoded size of a Profile.
const ProfileSize = DiscriminatorSize + IdentitySize + 1 + 1

var (
	profileDiscriminator = discriminator("UserProfile")
	taskDiscriminator    = discriminator("TodoAccount")
)

func discriminator(typeName string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + typeName))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// EncodeProfile serializes p as
// discriminator | owner | next_index | task_count.
func EncodeProfile(p Profile) []byte {
	buf := make([]byte, 0, ProfileSize)
	buf = append(buf, profileDiscriminator[:]...)
	buf = append(buf, p.Owner[:]...)
	buf = append(buf, p.NextIndex, p.TaskCount)
	return buf
}

// DecodeProfile parses bytes produced by EncodeProfile.
func DecodeProfile(data []byte) (Profile, error) {
	if len(data) != ProfileSize {
		return Profile{}, fmt.Errorf("%w: profile is %d bytes, want %d", ErrCorruptRecord, len(data), ProfileSize)
	}
	if err := checkDiscriminator(data, profileDiscriminator); err != nil {
		return Profile{}, err
	}
	var p Profile
	off := DiscriminatorSize
	copy(p.Owner[:], data[off:off+IdentitySize])
	off += IdentitySize
	p.NextIndex = data[off]
	p.TaskCount = data[off+1]
	return p, nil
}

// EncodedTaskSize returns the encoded length of a task with the given content.
func EncodedTaskSize(content string) int {
	return DiscriminatorSize + IdentitySize + 1 + 4 + len(content) + 1
}

// EncodeTask serializes t as
// discriminator | owner | index | u32le(len(content)) | content | completed.
func EncodeTask(t Task) ([]byte, error) {
	if uint64(len(t.Content)) > math.MaxUint32 {
		return nil, fmt.Errorf("encode task: content length %d overflows u32", len(t.Content))
	}
	buf := make([]byte, 0, EncodedTaskSize(t.Content))
	buf = append(buf, taskDiscriminator[:]...)
	buf = append(buf, t.Owner[:]...)
	buf = append(buf, t.Index)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Content)))
	buf = append(buf, t.Content...)
	if t.Completed {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf, nil
}

// DecodeTask parses bytes produced by EncodeTask.
func DecodeTask(data []byte) (Task, error) {
	const fixed = DiscriminatorSize + IdentitySize + 1 + 4
	if len(data) < fixed+1 {
		return Task{}, fmt.Errorf("%w: task is %d bytes, want at least %d", ErrCorruptRecord, len(data), fixed+1)
	}
	if err := checkDiscriminator(data, taskDiscriminator); err != nil {
		return Task{}, err
	}
	var t Task
	off := DiscriminatorSize
	copy(t.Owner[:], data[off:off+IdentitySize])
	off += IdentitySize
	t.Index = data[off]
	off++
	n := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	if uint64(len(data)-off) != uint64(n)+1 {
		return Task{}, fmt.Errorf("%w: content length %d does not match payload", ErrCorruptRecord, n)
	}
	t.Content = string(data[off : off+int(n)])
	off += int(n)
	switch data[off] {
	case 0:
	case 1:
		t.Completed = true
	default:
		return Task{}, fmt.Errorf("%w: invalid completed flag %d", ErrCorruptRecord, data[off])
	}
	return t, nil
}

func checkDiscriminator(data []byte, want [DiscriminatorSize]byte) error {
	var got [DiscriminatorSize]byte
	copy(got[:], data[:DiscriminatorSize])
	if got != want {
		return fmt.Errorf("%w: unexpected discriminator %x", ErrCorruptRecord, got)
	}
	return nil
}
