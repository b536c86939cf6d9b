package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"corpdesk/internal/config"
	"corpdesk/internal/domain"
	"corpdesk/internal/logger"
	"corpdesk/internal/pool"
	"corpdesk/internal/reqctx"
)

type call struct {
	sql  string
	args []any
}

// scriptConn records every statement and answers QueryRow calls from a
// queue of scripted scan functions.
type scriptConn struct {
	execs     []call
	queries   []call
	rowCalls  []call
	execErr   map[string]error
	rows      []func(dest ...any) error
	queryRows pgx.Rows
}

func (c *scriptConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execs = append(c.execs, call{sql: sql, args: args})
	for prefix, err := range c.execErr {
		if strings.HasPrefix(sql, prefix) {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (c *scriptConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.queries = append(c.queries, call{sql: sql, args: args})
	if c.queryRows != nil {
		return c.queryRows, nil
	}
	return emptyRows{}, nil
}

func (c *scriptConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c.rowCalls = append(c.rowCalls, call{sql: sql, args: args})
	if len(c.rows) == 0 {
		return scriptRow(func(dest ...any) error { return pgx.ErrNoRows })
	}
	next := c.rows[0]
	c.rows = c.rows[1:]
	return scriptRow(next)
}

func (c *scriptConn) Release() {}

type scriptRow func(dest ...any) error

func (r scriptRow) Scan(dest ...any) error { return r(dest...) }

type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(dest ...any) error                       { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

// scriptRows yields one row per scripted scan function.
type scriptRows struct {
	emptyRows
	scans []func(dest ...any) error
}

func (r *scriptRows) Next() bool { return len(r.scans) > 0 }

func (r *scriptRows) Scan(dest ...any) error {
	next := r.scans[0]
	r.scans = r.scans[1:]
	return next(dest...)
}

type scriptPool struct {
	conn *scriptConn
}

func (p *scriptPool) Acquire(ctx context.Context) (pool.Conn, error) { return p.conn, nil }
func (p *scriptPool) Close()                                         {}

func newTestEngine(conn *scriptConn) *Engine {
	mgr := pool.NewManager(pool.Config{}, logger.NewNoopLogger(), pool.WithConnector(
		func(ctx context.Context, cfg pool.Config) (pool.Pool, error) {
			return &scriptPool{conn: conn}, nil
		}))
	cfg := config.Default()
	e := New(mgr, cfg, afero.NewMemMapFs(), logger.NewNoopLogger())
	e.Now = func() time.Time {
		return time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func authedContext(userID, tenantID uuid.UUID) context.Context {
	return reqctx.With(context.Background(), reqctx.New(&userID, &tenantID))
}

func agingStatements(execs []call) []call {
	var out []call
	for _, c := range execs {
		if strings.HasPrefix(c.sql, "UPDATE documentos SET estado") {
			out = append(out, c)
		}
	}
	return out
}

func TestListDocumentsSweepsFirst(t *testing.T) {
	conn := &scriptConn{}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())

	_, err := e.ListDocuments(ctx)
	require.NoError(t, err)

	aging := agingStatements(conn.execs)
	require.Len(t, aging, 2, "both transitions run before the listing")

	now := e.Now()
	require.Equal(t, []any{domain.DocumentPending, domain.DocumentInProgress, now.Add(-72 * time.Hour)}, aging[0].args)
	require.Equal(t, []any{domain.DocumentOmitted, domain.DocumentPending, now.Add(-144 * time.Hour)}, aging[1].args)

	require.Len(t, conn.queries, 1, "listing query follows the sweep")
}

func TestSweepFailureAbortsListing(t *testing.T) {
	conn := &scriptConn{execErr: map[string]error{
		"UPDATE documentos SET estado": errors.New("deadlock detected"),
	}}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())

	_, err := e.ListDocuments(ctx)
	require.ErrorIs(t, err, ErrSweep)
	require.Empty(t, conn.queries, "no listing after a failed sweep")
}

func TestSweepIsIdempotentByPredicate(t *testing.T) {
	conn := &scriptConn{}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())

	_, err := e.ListDocuments(ctx)
	require.NoError(t, err)
	_, err = e.ListDocuments(ctx)
	require.NoError(t, err)

	aging := agingStatements(conn.execs)
	require.Len(t, aging, 4)
	// Each statement only matches rows still in the source state, so a
	// second pass with the same cutoffs has nothing left to touch.
	for _, c := range aging {
		require.Contains(t, c.sql, "WHERE estado =")
		require.Contains(t, c.sql, "fecha_ultima_actividad <")
	}
}

func TestUpdateEstadoRefreshesActivity(t *testing.T) {
	conn := &scriptConn{}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())
	id := uuid.New()

	require.NoError(t, e.UpdateDocumentEstado(ctx, id, domain.DocumentSigned))

	var updated *call
	for i := range conn.execs {
		if strings.HasPrefix(conn.execs[i].sql, "UPDATE documentos") {
			updated = &conn.execs[i]
		}
	}
	require.NotNil(t, updated)
	require.Contains(t, updated.args, domain.DocumentSigned)
	require.Contains(t, updated.args, e.Now(), "state changes restart the inactivity clock")
}

func TestCreateDocumentGeneratesCorrelativo(t *testing.T) {
	docID := uuid.New()
	conn := &scriptConn{rows: []func(dest ...any) error{
		// gerencia siglas for the sender
		func(dest ...any) error {
			*(dest[0].(*string)) = "DOC"
			return nil
		},
		// existing correlativos this year
		func(dest ...any) error {
			*(dest[0].(*int64)) = 3
			return nil
		},
		// RETURNING id
		func(dest ...any) error {
			*(dest[0].(*uuid.UUID)) = docID
			return nil
		},
	}}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())

	id, err := e.CreateDocument(ctx, CreateDocumentInput{
		Titulo:        "Informe anual",
		TipoDocumento: "oficio",
		Prioridad:     "alta",
	})
	require.NoError(t, err)
	require.Equal(t, docID, id)

	insert := conn.rowCalls[len(conn.rowCalls)-1]
	require.True(t, strings.HasPrefix(insert.sql, "INSERT INTO documentos"))
	require.Contains(t, insert.args, "DOC 004 2026")
}

func TestCreateDocumentKeepsCallerCorrelativo(t *testing.T) {
	conn := &scriptConn{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*uuid.UUID)) = uuid.New()
			return nil
		},
	}}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())

	_, err := e.CreateDocument(ctx, CreateDocumentInput{
		Titulo:        "Memo",
		TipoDocumento: "memo",
		Prioridad:     "baja",
		Correlativo:   "GG 099 2026",
	})
	require.NoError(t, err)

	insert := conn.rowCalls[len(conn.rowCalls)-1]
	require.Contains(t, insert.args, "GG 099 2026")
	require.Len(t, conn.rowCalls, 1, "no numbering queries when the correlativo is given")
}

func TestCreateDocumentStoresAttachments(t *testing.T) {
	conn := &scriptConn{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*uuid.UUID)) = uuid.New()
			return nil
		},
	}}
	e := newTestEngine(conn)
	ctx := authedContext(uuid.New(), uuid.New())

	_, err := e.CreateDocument(ctx, CreateDocumentInput{
		Titulo:        "Con adjunto",
		TipoDocumento: "oficio",
		Prioridad:     "media",
		Correlativo:   "GG 001 2026",
		Attachments: []Upload{
			{Filename: "scan.pdf", Content: []byte("%PDF-1.4")},
		},
	})
	require.NoError(t, err)

	entries, err := afero.ReadDir(e.Files, e.Cfg.Server.UploadsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Name(), ".pdf"), "original extension survives")

	var attached bool
	for _, c := range conn.execs {
		if strings.HasPrefix(c.sql, "INSERT INTO documento_adjuntos") {
			attached = true
		}
	}
	require.True(t, attached)
}

func TestCreateTicketUsesCaller(t *testing.T) {
	userID := uuid.New()
	conn := &scriptConn{rows: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*int64)) = 7
			*(dest[1].(*time.Time)) = time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC)
			return nil
		},
	}}
	e := newTestEngine(conn)
	ctx := authedContext(userID, uuid.New())

	ticket, err := e.CreateTicket(ctx, CreateTicketInput{
		Titulo:      "Impresora sin tóner",
		Descripcion: "Piso 3",
		Area:        "soporte",
		Prioridad:   "media",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), ticket.ID)
	require.NotNil(t, ticket.SolicitanteID)
	require.Equal(t, userID, *ticket.SolicitanteID)
	require.Equal(t, "abierto", ticket.Estado)
}

// The schema allows a nulled-out requester (the profile was deleted);
// the listing scan has to take a pointer so such rows still load.
func TestListTicketsAllowsMissingRequester(t *testing.T) {
	conn := &scriptConn{queryRows: &scriptRows{scans: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*int64)) = 12
			*(dest[1].(*string)) = "Acceso VPN"
			if _, ok := dest[7].(**uuid.UUID); !ok {
				return errors.New("solicitante_id must scan into a nullable destination")
			}
			*(dest[10].(*time.Time)) = time.Date(2026, time.August, 30, 9, 0, 0, 0, time.UTC)
			return nil
		},
	}}}
	e := newTestEngine(conn)

	tickets, err := e.ListTickets(authedContext(uuid.New(), uuid.New()))
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.Nil(t, tickets[0].SolicitanteID)
	require.Equal(t, "Acceso VPN", tickets[0].Titulo)
}

func TestCreateTicketRequiresIdentity(t *testing.T) {
	e := newTestEngine(&scriptConn{})
	_, err := e.CreateTicket(context.Background(), CreateTicketInput{Titulo: "x"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
