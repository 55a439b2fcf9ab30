package draftsync

import (
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts SessionOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.DocumentPatched:
			if opts.onDraftChanged != nil {
				opts.onDraftChanged(typedEvent.Version, typedEvent.Fields)
			}
		case events.DocumentRestored:
			if opts.onDraftChanged != nil {
				opts.onDraftChanged(typedEvent.Version, nil)
			}
		case events.InputFinalized:
			if opts.onInputFinalized != nil && typedEvent.HasFinalInput {
				opts.onInputFinalized(typedEvent.Channel, typedEvent.TurnID)
			}
		case events.TurnCompleted:
			if opts.onTurnCompleted != nil {
				opts.onTurnCompleted(typedEvent)
			}
		case events.PolicyChanged:
			if opts.onPolicyChanged != nil {
				opts.onPolicyChanged(syncstore.InputPolicy(typedEvent.Policy))
			}
		}
	}
}
