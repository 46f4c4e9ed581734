package store

import (
	"fmt"
	"strings"
)

// schema renders the DDL for both datasets. blob and ts name the binary and
// timestamp column types of the target database.
func schema(blob, ts string) string {
	var b strings.Builder
	for _, ds := range []Dataset{Internal, OCID} {
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %[1]s (
	cellid    %[3]s PRIMARY KEY,
	areaid    %[3]s NOT NULL,
	radio     INTEGER NOT NULL,
	mcc       INTEGER NOT NULL,
	mnc       INTEGER NOT NULL,
	lac       INTEGER NOT NULL,
	cid       INTEGER NOT NULL,
	lat       DOUBLE PRECISION NOT NULL,
	lon       DOUBLE PRECISION NOT NULL,
	radius    DOUBLE PRECISION NOT NULL DEFAULT 0,
	samples   INTEGER NOT NULL DEFAULT 0,
	region    TEXT NOT NULL DEFAULT '',
	created   %[4]s NOT NULL,
	last_seen %[4]s NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_areaid ON %[1]s(areaid);

CREATE TABLE IF NOT EXISTS %[2]s (
	areaid    %[3]s PRIMARY KEY,
	radio     INTEGER NOT NULL,
	mcc       INTEGER NOT NULL,
	mnc       INTEGER NOT NULL,
	lac       INTEGER NOT NULL,
	num_cells INTEGER NOT NULL DEFAULT 0,
	lat       DOUBLE PRECISION NOT NULL,
	lon       DOUBLE PRECISION NOT NULL,
	radius    DOUBLE PRECISION NOT NULL DEFAULT 0,
	samples   INTEGER NOT NULL DEFAULT 0,
	region    TEXT NOT NULL DEFAULT '',
	created   %[4]s NOT NULL,
	last_seen %[4]s NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[2]s_region ON %[2]s(region);
`, ds.cellTable(), ds.areaTable(), blob, ts)
	}
	fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS wifi (
	mac       %[1]s PRIMARY KEY,
	lat       DOUBLE PRECISION NOT NULL,
	lon       DOUBLE PRECISION NOT NULL,
	radius    DOUBLE PRECISION NOT NULL DEFAULT 0,
	samples   INTEGER NOT NULL DEFAULT 0,
	region    TEXT NOT NULL DEFAULT '',
	created   %[2]s NOT NULL,
	last_seen %[2]s NOT NULL
);
`, blob, ts)
	return b.String()
}
