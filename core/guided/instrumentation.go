package guided

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/guided"

var logger = otelslog.NewLogger(scopeName)
