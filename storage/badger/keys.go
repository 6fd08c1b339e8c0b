package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/corvus-ai/corvus/core"
)

// Key prefixes for different data types
const (
	kbRecordPrefix  = "kbrec"
	kbIDSeq         = "kbrecseq"
	docRecordPrefix = "docrec"
	docKBPrefix     = "dockb"
	docIDSeq        = "docrecseq"
	chunkPrefix     = "churec"
	chunkDocPrefix  = "chudoc"
	chunkKBPrefix   = "chukb"
	chunkIDSeq      = "churecseq"
	sessionPrefix   = "sesrec"
	sessionKBPrefix = "seskb"
	sessionIDSeq    = "sesrecseq"
	messagePrefix   = "msgrec"
	messageSesPrefix = "msgses"
	messageIDSeq    = "msgrecseq"
)

// makeRecordKey generates a primary key for a record by ID.
func makeRecordKey(prefix string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", prefix, id))
}

// makeIndexKey generates a composite index key.
// Format: prefix:parentID:childID, fixed-width BigEndian so lexicographic
// sort matches numeric sort.
func makeIndexKey(prefix string, parent, child uint64) []byte {
	p := prefix + ":"
	buf := make([]byte, len(p)+16)
	offset := copy(buf, p)
	binary.BigEndian.PutUint64(buf[offset:], parent)
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], child)
	return buf
}

// makePartialIndexKey generates the prefix of an index key for one parent.
// Format: prefix:parentID
func makePartialIndexKey(prefix string, parent uint64) []byte {
	p := prefix + ":"
	buf := make([]byte, len(p)+8)
	offset := copy(buf, p)
	binary.BigEndian.PutUint64(buf[offset:], parent)
	return buf
}

// makeChunkDocKey indexes a chunk by (document, ordinal) so per-document
// iteration yields chunks in ordinal order.
func makeChunkDocKey(docID core.ID, index int) []byte {
	return makeIndexKey(chunkDocPrefix, uint64(docID), uint64(index))
}

// makeMessageSessionKey indexes a message by (session, message ID). Message
// IDs are sequence-generated, so iteration order is conversation order.
func makeMessageSessionKey(sessionID, msgID core.ID) []byte {
	return makeIndexKey(messageSesPrefix, uint64(sessionID), uint64(msgID))
}
