package syncstore

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"

var logger = otelslog.NewLogger(scopeName)
