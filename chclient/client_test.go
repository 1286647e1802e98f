package chclient

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/alfa07/chnative/block"
	"github.com/alfa07/chnative/cherrors"
	"github.com/alfa07/chnative/chtype"
	"github.com/alfa07/chnative/column"
	"github.com/alfa07/chnative/proto"
	"github.com/alfa07/chnative/wire"
)

// fakePeer wraps one end of a net.Pipe() with buffered reads so it
// satisfies wire.Reader, the way chnet.Conn does for the client side.
type fakePeer struct {
	*bufio.Reader
	w *bufio.Writer
}

func newFakePeer(nc net.Conn) *fakePeer {
	return &fakePeer{Reader: bufio.NewReader(nc), w: bufio.NewWriter(nc)}
}

func (p *fakePeer) flush(t *testing.T) {
	t.Helper()
	if err := p.w.Flush(); err != nil {
		t.Fatalf("server: flush: %v", err)
	}
}

// fakeServerHandshake writes a ServerHello reply matching the
// client's negotiated revision, the inverse of proto.WriteClientHello.
func fakeServerHandshake(t *testing.T, peer *fakePeer, serverRevision uint64) {
	t.Helper()
	// Hello packet: code, name, major, minor, revision, db, user, pass[, quota].
	code, err := wire.ReadVarint(peer)
	if err != nil || code != proto.ClientHello {
		t.Fatalf("server: read hello code: %v (code=%d)", err, code)
	}
	if _, err := wire.ReadString(peer); err != nil {
		t.Fatalf("server: read client name: %v", err)
	}
	for i := 0; i < 3; i++ { // major, minor, revision
		if _, err := wire.ReadVarint(peer); err != nil {
			t.Fatalf("server: read hello varint %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ { // db, user, password
		if _, err := wire.ReadString(peer); err != nil {
			t.Fatalf("server: read hello string %d: %v", i, err)
		}
	}
	if proto.ClientRevision >= proto.RevisionAddendum {
		if _, err := wire.ReadString(peer); err != nil {
			t.Fatalf("server: read quota key: %v", err)
		}
	}

	if err := wire.WriteVarint(peer.w, proto.ServerHello); err != nil {
		t.Fatalf("server: write hello code: %v", err)
	}
	if err := wire.WriteString(peer.w, "fakeserver"); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteVarint(peer.w, 23); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteVarint(peer.w, 8); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteVarint(peer.w, serverRevision); err != nil {
		t.Fatal(err)
	}
	r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)
	if r >= proto.RevisionServerTimezone {
		if err := wire.WriteString(peer.w, "UTC"); err != nil {
			t.Fatal(err)
		}
	}
	if r >= proto.RevisionServerDisplayName {
		if err := wire.WriteString(peer.w, "fakeserver display"); err != nil {
			t.Fatal(err)
		}
	}
	if r >= proto.RevisionVersionPatch {
		if err := wire.WriteVarint(peer.w, 1); err != nil {
			t.Fatal(err)
		}
	}
	peer.flush(t)
}

// fakeServerReadClientInfo consumes the ClientInfo block exactly as
// proto.WriteClientInfo emits it, the inverse of that function.
func fakeServerReadClientInfo(t *testing.T, peer *fakePeer, r uint64) {
	t.Helper()
	if r < proto.RevisionClientInfo {
		return
	}
	kind, err := wire.ReadU8(peer)
	if err != nil {
		t.Fatalf("server: read query kind: %v", err)
	}
	if proto.QueryKind(kind) == proto.QueryKindNoQuery {
		return
	}
	for i := 0; i < 3; i++ { // initial user, initial query id, initial address
		if _, err := wire.ReadString(peer); err != nil {
			t.Fatalf("server: read client info string %d: %v", i, err)
		}
	}
	if _, err := wire.ReadU8(peer); err != nil { // interface id
		t.Fatalf("server: read interface id: %v", err)
	}
	for i := 0; i < 3; i++ { // os user, client hostname, client name
		if _, err := wire.ReadString(peer); err != nil {
			t.Fatalf("server: read client info string %d: %v", i, err)
		}
	}
	for i := 0; i < 3; i++ { // version major, minor, revision
		if _, err := wire.ReadVarint(peer); err != nil {
			t.Fatalf("server: read client info varint %d: %v", i, err)
		}
	}
	if r >= proto.RevisionQuotaKey {
		if _, err := wire.ReadString(peer); err != nil {
			t.Fatalf("server: read quota key: %v", err)
		}
	}
	if _, err := wire.ReadVarint(peer); err != nil { // distributed depth
		t.Fatalf("server: read distributed depth: %v", err)
	}
	if r >= proto.RevisionOpenTelemetry {
		hasTrace, err := wire.ReadU8(peer)
		if err != nil {
			t.Fatalf("server: read trace flag: %v", err)
		}
		if hasTrace != 0 {
			if _, err := wire.ReadWidth(peer, 16); err != nil {
				t.Fatal(err)
			}
			if _, err := wire.ReadU64(peer); err != nil {
				t.Fatal(err)
			}
			if _, err := wire.ReadString(peer); err != nil {
				t.Fatal(err)
			}
			if _, err := wire.ReadU8(peer); err != nil {
				t.Fatal(err)
			}
		}
	}
}

// fakeServerReadQuery consumes one full Query packet (code already
// read by the caller's dispatch) plus its trailing empty Data packet,
// and returns the query text.
func fakeServerReadQuery(t *testing.T, peer *fakePeer, r uint64) string {
	t.Helper()
	if _, err := wire.ReadString(peer); err != nil { // query_id
		t.Fatalf("server: read query id: %v", err)
	}
	fakeServerReadClientInfo(t, peer, r)
	if _, err := proto.ReadSettings(peer); err != nil {
		t.Fatalf("server: read settings: %v", err)
	}
	if r >= proto.RevisionParameters {
		if _, err := wire.ReadString(peer); err != nil { // parameters terminator
			t.Fatalf("server: read parameters terminator: %v", err)
		}
	}
	if _, err := wire.ReadVarint(peer); err != nil { // stage
		t.Fatalf("server: read stage: %v", err)
	}
	if _, err := wire.ReadU8(peer); err != nil { // compression
		t.Fatalf("server: read compression: %v", err)
	}
	text, err := wire.ReadString(peer)
	if err != nil {
		t.Fatalf("server: read query text: %v", err)
	}
	// trailing empty Data packet.
	code, err := wire.ReadVarint(peer)
	if err != nil || code != proto.ClientData {
		t.Fatalf("server: expected trailing Data packet: %v (code=%d)", err, code)
	}
	if _, err := block.Read(peer, r); err != nil {
		t.Fatalf("server: read trailing empty block: %v", err)
	}
	return text
}

func writeServerDataBlock(t *testing.T, peer *fakePeer, r uint64, b *block.Block) {
	t.Helper()
	if err := wire.WriteVarint(peer.w, proto.ServerData); err != nil {
		t.Fatal(err)
	}
	if err := block.Write(peer.w, b, r); err != nil {
		t.Fatal(err)
	}
	peer.flush(t)
}

func writeServerEndOfStream(t *testing.T, peer *fakePeer) {
	t.Helper()
	if err := wire.WriteVarint(peer.w, proto.ServerEndOfStream); err != nil {
		t.Fatal(err)
	}
	peer.flush(t)
}

// TestSelectNumbersRoundTrip runs a full SELECT against a fake server:
// handshake, query, one 1000-row UInt64 block, EndOfStream.
func TestSelectNumbersRoundTrip(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	const serverRevision = proto.ClientRevision
	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, serverRevision)
		r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)
		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)

		col, err := column.New(chtype.Simple(chtype.KindUInt64))
		if err != nil {
			t.Error(err)
			return
		}
		for i := uint64(0); i < 1000; i++ {
			if err := col.AppendAny(i); err != nil {
				t.Error(err)
				return
			}
		}
		b := &block.Block{Columns: []block.ColumnEntry{
			{Name: "number", Column: col},
		}}
		writeServerDataBlock(t, peer, r, b)
		writeServerEndOfStream(t, peer)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000, SendTimeout: 2 * time.Second, RecvTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	result, err := c.Query(Query{Text: "SELECT number FROM system.numbers LIMIT 1000"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	<-done
	if result.TotalRows != 1000 {
		t.Fatalf("TotalRows = %d, want 1000", result.TotalRows)
	}
	col := result.Blocks[0].ByName("number")
	for i := 0; i < 1000; i++ {
		if col.At(i) != uint64(i) {
			t.Fatalf("row %d = %v, want %d", i, col.At(i), i)
		}
	}
}

// TestQuerySurvivesProgressAndProfilePackets confirms that Progress,
// ProfileInfo, ProfileEvents, and TableColumns packets interleaved
// mid-query are consumed silently and never poison the connection.
func TestQuerySurvivesProgressAndProfilePackets(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	const serverRevision = proto.ClientRevision
	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, serverRevision)
		r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)
		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)

		// Progress, with every revision-gated field present (this
		// server negotiates the client's full revision).
		if err := wire.WriteVarint(peer.w, proto.ServerProgress); err != nil {
			t.Error(err)
			return
		}
		for i := 0; i < 6; i++ { // read_rows, read_bytes, total_rows, written_rows, written_bytes, elapsed_ns
			if err := wire.WriteVarint(peer.w, uint64(i+1)); err != nil {
				t.Error(err)
				return
			}
		}
		peer.flush(t)

		// ProfileEvents: the packet code directly followed by a Block
		// (no leading ServerData code), per block.Read's framing.
		if err := wire.WriteVarint(peer.w, proto.ServerProfileEvents); err != nil {
			t.Error(err)
			return
		}
		if err := block.Write(peer.w, &block.Block{}, r); err != nil {
			t.Error(err)
			return
		}
		peer.flush(t)

		// TableColumns: table name + columns description strings.
		if err := wire.WriteVarint(peer.w, proto.ServerTableColumns); err != nil {
			t.Error(err)
			return
		}
		if err := wire.WriteString(peer.w, "system.numbers"); err != nil {
			t.Error(err)
			return
		}
		if err := wire.WriteString(peer.w, "number UInt64"); err != nil {
			t.Error(err)
			return
		}
		peer.flush(t)

		// ProfileInfo: fixed varint/bool tuple.
		if err := wire.WriteVarint(peer.w, proto.ServerProfileInfo); err != nil {
			t.Error(err)
			return
		}
		for i := 0; i < 2; i++ {
			if err := wire.WriteVarint(peer.w, uint64(i)); err != nil {
				t.Error(err)
				return
			}
		}
		if err := wire.WriteVarint(peer.w, 1000); err != nil {
			t.Error(err)
			return
		}
		if err := wire.WriteU8(peer.w, 0); err != nil {
			t.Error(err)
			return
		}
		if err := wire.WriteVarint(peer.w, 1000); err != nil {
			t.Error(err)
			return
		}
		if err := wire.WriteU8(peer.w, 0); err != nil {
			t.Error(err)
			return
		}
		peer.flush(t)

		col, err := column.New(chtype.Simple(chtype.KindUInt64))
		if err != nil {
			t.Error(err)
			return
		}
		if err := col.AppendAny(uint64(42)); err != nil {
			t.Error(err)
			return
		}
		b := &block.Block{Columns: []block.ColumnEntry{{Name: "number", Column: col}}}
		writeServerDataBlock(t, peer, r, b)
		writeServerEndOfStream(t, peer)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000, SendTimeout: 2 * time.Second, RecvTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	result, err := c.Query(Query{Text: "SELECT number FROM system.numbers LIMIT 1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	<-done
	if result.TotalRows != 1 {
		t.Fatalf("TotalRows = %d, want 1", result.TotalRows)
	}
	if poisoned, poisonErr := c.sess.Errored(); poisoned {
		t.Fatalf("connection poisoned after query: %v", poisonErr)
	}
}

// TestPing exercises the Ping/Pong round trip.
func TestPing(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, proto.ClientRevision)
		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientPing {
			t.Errorf("server: expected Ping: %v (code=%d)", err, code)
			return
		}
		if err := wire.WriteVarint(peer.w, proto.ServerPong); err != nil {
			t.Error(err)
		}
		peer.flush(t)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	<-done
}

func writeServerException(t *testing.T, peer *fakePeer, code int32, name, msg string) {
	t.Helper()
	if err := wire.WriteVarint(peer.w, proto.ServerException); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteI32(peer.w, code); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteString(peer.w, name); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteString(peer.w, msg); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteString(peer.w, ""); err != nil { // stack trace
		t.Fatal(err)
	}
	if err := wire.WriteU8(peer.w, 0); err != nil { // no nested exception
		t.Fatal(err)
	}
	peer.flush(t)
}

// TestQueryExceptionThenEndOfStreamLeavesClientUsable: a server
// Exception followed by EndOfStream surfaces the exception but does
// not poison the connection; the next operation still works.
func TestQueryExceptionThenEndOfStreamLeavesClientUsable(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	const serverRevision = proto.ClientRevision
	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, serverRevision)
		r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)
		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)
		writeServerException(t, peer, 60, "DB::Exception", "Table default.missing does not exist")
		writeServerEndOfStream(t, peer)

		code, err = wire.ReadVarint(peer)
		if err != nil || code != proto.ClientPing {
			t.Errorf("server: expected Ping after failed query: %v (code=%d)", err, code)
			return
		}
		if err := wire.WriteVarint(peer.w, proto.ServerPong); err != nil {
			t.Error(err)
			return
		}
		peer.flush(t)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000, SendTimeout: 2 * time.Second, RecvTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	_, err = c.Query(Query{Text: "SELECT * FROM missing"})
	ex, ok := err.(*cherrors.ServerException)
	if !ok {
		t.Fatalf("Query err = %v (%T), want *cherrors.ServerException", err, err)
	}
	if ex.Code != 60 {
		t.Fatalf("exception code = %d, want 60", ex.Code)
	}
	if poisoned, poisonErr := c.sess.Errored(); poisoned {
		t.Fatalf("connection poisoned after exception + EndOfStream: %v", poisonErr)
	}
	if err := c.Ping(); err != nil {
		t.Fatalf("Ping after failed query: %v", err)
	}
	<-done
}

// TestInsertLowCardinalityRoundTrip drives the INSERT protocol end to
// end: schema reply, one data block of five LowCardinality(String)
// values, terminal empty block, EndOfStream. The fake server decodes
// the rows block and checks the dictionary deduplicated to 3 entries.
func TestInsertLowCardinalityRoundTrip(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	values := []string{"status1", "status2", "status1", "status3", "status2"}
	const serverRevision = proto.ClientRevision
	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, serverRevision)
		r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)
		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)

		// schema reply: zero-row block carrying column name/type only.
		lcType, err := chtype.Parse("LowCardinality(String)")
		if err != nil {
			t.Error(err)
			return
		}
		schemaCol, err := column.New(lcType)
		if err != nil {
			t.Error(err)
			return
		}
		schema := &block.Block{Columns: []block.ColumnEntry{{Name: "status", Column: schemaCol}}}
		writeServerDataBlock(t, peer, r, schema)

		// rows block from the client.
		code, err = wire.ReadVarint(peer)
		if err != nil || code != proto.ClientData {
			t.Errorf("server: expected rows Data packet: %v (code=%d)", err, code)
			return
		}
		rows, err := block.Read(peer, r)
		if err != nil {
			t.Errorf("server: read rows block: %v", err)
			return
		}
		if rows.NumRows() != len(values) {
			t.Errorf("server: rows = %d, want %d", rows.NumRows(), len(values))
		}
		col := rows.ByName("status")
		for i, want := range values {
			if col.At(i) != want {
				t.Errorf("server: row %d = %v, want %q", i, col.At(i), want)
			}
		}
		if d, ok := col.(interface{ DictionarySize() int }); !ok || d.DictionarySize() != 3 {
			t.Errorf("server: dictionary size = %v, want 3", col)
		}

		// terminal empty Data packet.
		code, err = wire.ReadVarint(peer)
		if err != nil || code != proto.ClientData {
			t.Errorf("server: expected terminal Data packet: %v (code=%d)", err, code)
			return
		}
		if _, err := block.Read(peer, r); err != nil {
			t.Errorf("server: read terminal empty block: %v", err)
			return
		}
		writeServerEndOfStream(t, peer)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000, SendTimeout: 2 * time.Second, RecvTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	err = c.Insert("INSERT INTO t (status) VALUES", func(schema *block.Block) (*block.Block, error) {
		blk, err := NewInsertBlock(schema)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if err := blk.Columns[0].Column.AppendAny(v); err != nil {
				return nil, err
			}
		}
		return blk, nil
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	<-done
}

// TestCancelledQueryDoesNotBrickClient: a Cancel writes one Cancel
// packet, the query drains to EndOfStream and returns ErrCancelled,
// and the flag is cleared so the next query on the same connection
// runs normally with no spurious Cancel packet.
func TestCancelledQueryDoesNotBrickClient(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	const serverRevision = proto.ClientRevision
	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, serverRevision)
		r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)

		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)
		code, err = wire.ReadVarint(peer)
		if err != nil || code != proto.ClientCancel {
			t.Errorf("server: expected Cancel packet: %v (code=%d)", err, code)
			return
		}
		writeServerEndOfStream(t, peer)

		// the next query must arrive clean, with no leading Cancel.
		code, err = wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected second Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)
		col, err := column.New(chtype.Simple(chtype.KindUInt64))
		if err != nil {
			t.Error(err)
			return
		}
		if err := col.AppendAny(uint64(7)); err != nil {
			t.Error(err)
			return
		}
		b := &block.Block{Columns: []block.ColumnEntry{{Name: "number", Column: col}}}
		writeServerDataBlock(t, peer, r, b)
		writeServerEndOfStream(t, peer)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000, SendTimeout: 2 * time.Second, RecvTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	c.Cancel()
	if _, err := c.Query(Query{Text: "SELECT sleep(3)"}); err != cherrors.ErrCancelled {
		t.Fatalf("cancelled Query err = %v, want ErrCancelled", err)
	}
	if poisoned, poisonErr := c.sess.Errored(); poisoned {
		t.Fatalf("connection poisoned after cancelled query: %v", poisonErr)
	}

	result, err := c.Query(Query{Text: "SELECT number FROM system.numbers LIMIT 1"})
	if err != nil {
		t.Fatalf("second Query after cancel: %v", err)
	}
	if result.TotalRows != 1 || result.Blocks[0].ByName("number").At(0) != uint64(7) {
		t.Fatalf("second query result = %+v", result)
	}
	<-done
}

// TestCancelledInsertSendsCancelAndDrains: a Cancel issued before the
// insert's drain phase writes a Cancel packet and surfaces
// ErrCancelled after EndOfStream.
func TestCancelledInsertSendsCancelAndDrains(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	const serverRevision = proto.ClientRevision
	done := make(chan struct{})
	go func() {
		defer close(done)
		peer := newFakePeer(serverSide)
		fakeServerHandshake(t, peer, serverRevision)
		r := proto.EffectiveRevision(proto.ClientRevision, serverRevision)
		code, err := wire.ReadVarint(peer)
		if err != nil || code != proto.ClientQuery {
			t.Errorf("server: expected Query packet: %v (code=%d)", err, code)
			return
		}
		fakeServerReadQuery(t, peer, r)

		schemaCol, err := column.New(chtype.Simple(chtype.KindString))
		if err != nil {
			t.Error(err)
			return
		}
		schema := &block.Block{Columns: []block.ColumnEntry{{Name: "s", Column: schemaCol}}}
		writeServerDataBlock(t, peer, r, schema)

		for i := 0; i < 2; i++ { // rows block, then terminal empty block
			code, err = wire.ReadVarint(peer)
			if err != nil || code != proto.ClientData {
				t.Errorf("server: expected Data packet %d: %v (code=%d)", i, err, code)
				return
			}
			if _, err := block.Read(peer, r); err != nil {
				t.Errorf("server: read Data packet %d: %v", i, err)
				return
			}
		}

		code, err = wire.ReadVarint(peer)
		if err != nil || code != proto.ClientCancel {
			t.Errorf("server: expected Cancel packet: %v (code=%d)", err, code)
			return
		}
		writeServerEndOfStream(t, peer)
	}()

	c, err := New(ClientOptions{Host: "fake", Port: 9000, SendTimeout: 2 * time.Second, RecvTimeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ConnectOverConn(clientSide); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	err = c.Insert("INSERT INTO t (s) VALUES", func(schema *block.Block) (*block.Block, error) {
		c.Cancel()
		blk, err := NewInsertBlock(schema)
		if err != nil {
			return nil, err
		}
		if err := blk.Columns[0].Column.AppendAny("x"); err != nil {
			return nil, err
		}
		return blk, nil
	})
	if err != cherrors.ErrCancelled {
		t.Fatalf("cancelled Insert err = %v, want ErrCancelled", err)
	}
	if c.sess.Cancelled() {
		t.Fatal("cancel flag should be cleared after the insert drained")
	}
	<-done
}
