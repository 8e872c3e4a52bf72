// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

/*
Package supervisor runs the long-lived parts of Whisperbox under a suture v4
supervisor tree.

The tree has two layers so that a failing event path never takes the HTTP
listener down with it:

	RootSupervisor ("whisperbox")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EventBusService  (watermill bus, embedded NATS when configured)
	│   ├── WebSocketHubService
	│   └── event-bridge     (bus subscriber feeding the hub)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Services that crash are restarted with suture's backoff. Supervisor events are
logged through sutureslog, which writes into the global zerolog logger via
logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddMessagingService(services.NewEventBusService(bus))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(bridge)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

The service wrappers live in the services subpackage and depend only on small
interfaces, so they can be tested without a database or a network.
*/
package supervisor
