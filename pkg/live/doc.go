// Package live is the realtime push surface: websocket sessions, the event
// vocabulary, and the hub that fans domain happenings out to them.
//
// Every outbound message is an Event envelope {type, data}. Inventory
// updates and stock alerts broadcast to sessions subscribed to the touched
// location; in-app notifications and barcode scan results go point-to-point
// to their owner. Clients steer their subscription and liveness with
// subscribe_locations, heartbeat, and ping control messages, and may submit
// offline operation batches with sync_request. Unknown message types are
// answered with an error event and the connection stays open.
//
// The Hub implements the delivery hooks the rest of the engine consumes:
// the dispatcher's LivePusher, the evaluator's Announcer, and the
// reconciler's ChangeBroadcaster.
package live
