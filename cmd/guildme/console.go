package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/JamesRaphaelJRC/guildme/pkg/api"
	"github.com/JamesRaphaelJRC/guildme/pkg/chat"
	"github.com/JamesRaphaelJRC/guildme/pkg/flash"
	"github.com/JamesRaphaelJRC/guildme/pkg/friends"
	"github.com/JamesRaphaelJRC/guildme/pkg/notify"
	"github.com/JamesRaphaelJRC/guildme/pkg/presence"
	"github.com/JamesRaphaelJRC/guildme/pkg/store"
	"github.com/JamesRaphaelJRC/guildme/pkg/tracking"
	"github.com/JamesRaphaelJRC/guildme/pkg/types"
)

// Console is the terminal rendering surface. All engine views funnel
// through it; the mutex keeps concurrent engine output from interleaving
// mid-line.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Transcript returns the chat pane view.
func (c *Console) Transcript() transcriptPane {
	return transcriptPane{c}
}

// Map returns the map pane view.
func (c *Console) Map() mapPane {
	return mapPane{c}
}

// transcriptPane renders the open chat session.
type transcriptPane struct {
	c *Console
}

func (p transcriptPane) Clear() {
	p.c.printf("--- chat ---\n")
}

func (p transcriptPane) Append(content string, fromFriend bool) {
	if fromFriend {
		p.c.printf("  them | %s\n", content)
	} else {
		p.c.printf("  you  | %s\n", content)
	}
}

// mapPane renders tracking output.
type mapPane struct {
	c *Console
}

func (p mapPane) SetSelf(coords types.Coordinates) {
	p.c.printf("[map] you are at (%.5f, %.5f)\n", coords.Latitude, coords.Longitude)
}

func (p mapPane) SetRoute(self, target types.Coordinates) {
	p.c.printf("[map] route (%.5f, %.5f) -> (%.5f, %.5f)\n",
		self.Latitude, self.Longitude, target.Latitude, target.Longitude)
}

func (p mapPane) Clear() {
	p.c.printf("[map] cleared\n")
}

// RenderFriends implements the friend-list view.
func (c *Console) RenderFriends(list []types.Friend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "--- friends (%d) ---\n", len(list))
	for _, f := range list {
		marker := " "
		if f.UnreadMessages {
			marker = "*"
		}
		fmt.Fprintf(c.out, "  %s %s\n", marker, f.Username)
	}
}

// RenderResults implements the search view.
func (c *Console) RenderResults(list []types.Friend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "--- search results (%d) ---\n", len(list))
	for _, f := range list {
		fmt.Fprintf(c.out, "  %s\n", f.Username)
	}
}

// Ring implements the notification bell.
func (c *Console) Ring() {
	c.printf("[bell] new notification\a\n")
}

// Quiet stops the bell animation.
func (c *Console) Quiet() {}

// RenderGeneral lists the general notification feed.
func (c *Console) RenderGeneral(items []types.NotificationItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "--- notifications (%d) ---\n", len(items))
	for _, item := range items {
		marker := "*"
		if item.Read {
			marker = " "
		}
		fmt.Fprintf(c.out, "  %s [%s] %s (%s)\n", marker, item.ID, item.Message, item.Date)
	}
}

// RenderRequests lists pending friend requests.
func (c *Console) RenderRequests(reqs []types.FriendRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "--- friend requests (%d) ---\n", len(reqs))
	for _, req := range reqs {
		fmt.Fprintf(c.out, "  [%s] from %s (%s)\n", req.ID, req.From, req.Date)
	}
}

// DimGeneral marks one notification read in place.
func (c *Console) DimGeneral(id string) {
	c.printf("[bell] notification %s read\n", id)
}

// RenderTrackingMe lists friends allowed to track this user.
func (c *Console) RenderTrackingMe(list []types.Friend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "--- friends who can track you (%d) ---\n", len(list))
	for _, f := range list {
		fmt.Fprintf(c.out, "  %s\n", f.Username)
	}
}

// RenderAllowedTracks lists friends this user may track.
func (c *Console) RenderAllowedTracks(list []types.Friend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "--- friends you can track (%d) ---\n", len(list))
	for _, f := range list {
		fmt.Fprintf(c.out, "  %s\n", f.Username)
	}
}

// Show implements the flash sink.
func (c *Console) Show(msg flash.Message) {
	c.printf("[%s] %s\n", msg.Severity, msg.Text)
}

// Hide implements the flash sink. Printed lines cannot be retracted.
func (c *Console) Hide(id string) {}

// consoleLocator feeds self coordinates typed at the prompt into the
// tracking engine, standing in for a platform location service.
type consoleLocator struct {
	updates chan types.Coordinates
	errs    chan error
}

func newConsoleLocator() *consoleLocator {
	return &consoleLocator{
		updates: make(chan types.Coordinates, 8),
		errs:    make(chan error, 1),
	}
}

// Watch implements tracking.Locator.
func (l *consoleLocator) Watch(ctx context.Context) (<-chan types.Coordinates, <-chan error, error) {
	return l.updates, l.errs, nil
}

// Push delivers a new self position. Drops when the engine lags.
func (l *consoleLocator) Push(coords types.Coordinates) {
	select {
	case l.updates <- coords:
	default:
	}
}

type replDeps struct {
	chat     *chat.Engine
	tracking *tracking.Engine
	notify   *notify.Engine
	friends  *friends.Manager
	presence *presence.Reporter
	client   *api.Client
	db       *store.BoltStore
	locator  *consoleLocator
	console  *Console
	quit     context.CancelFunc
}

const replHelp = `commands:
  friends                refresh and show the friend list
  search <name>          search friends by name
  chat <friend>          open a chat session
  say <text>             send a message in the open session
  close                  close the open chat session
  track <friend>         follow a friend on the map
  stoptrack              stop following
  loc <lat> <long>       report your own position
  bell                   open notifications
  requests               show friend requests
  closebell              close notifications
  accept <friend> <id>   accept a friend request
  decline <id>           decline a friend request
  request <user>         send a friend request by username or email
  readnotif <id>         mark a notification read
  allow <friend>         let a friend track you
  disallow <friend>      revoke a friend's track access
  remove <friend>        remove a friend
  profile                show track permission lists
  logout                 log out and exit
  delete-account         delete the account and exit
  quit                   exit
`

// repl reads commands from in and drives the engines. One command at a
// time, same as the single browser event loop the engines assume.
func repl(ctx context.Context, in io.Reader, deps *replDeps) {
	scanner := bufio.NewScanner(in)
	deps.console.printf("type 'help' for commands\n> ")

	confirm := func(prompt string) func() bool {
		return func() bool {
			deps.console.printf("%s [y/N] ", prompt)
			if !scanner.Scan() {
				return false
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			return answer == "y" || answer == "yes"
		}
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			deps.console.printf("> ")
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "help":
			deps.console.printf("%s", replHelp)
		case "friends":
			deps.presence.RequestRefresh()
		case "search":
			deps.friends.Search(ctx, rest)
		case "chat":
			deps.chat.Open(ctx, rest)
		case "say":
			deps.chat.Send(ctx, rest)
		case "close":
			deps.chat.Close(ctx)
		case "track":
			deps.tracking.Track(ctx, rest)
		case "stoptrack":
			deps.tracking.StopExternal()
		case "loc":
			lat, long, err := parseCoords(rest)
			if err != nil {
				deps.console.printf("usage: loc <lat> <long>\n")
				break
			}
			deps.locator.Push(types.Coordinates{Latitude: lat, Longitude: long})
		case "bell":
			deps.notify.OpenBell()
		case "requests":
			deps.notify.ShowFeed(types.FeedFriendRequest)
		case "closebell":
			deps.notify.CloseBell()
		case "accept":
			friend, id, ok := strings.Cut(rest, " ")
			if !ok {
				deps.console.printf("usage: accept <friend> <id>\n")
				break
			}
			deps.notify.Accept(ctx, friend, strings.TrimSpace(id))
		case "decline":
			deps.notify.Decline(rest)
		case "request":
			deps.notify.SendFriendRequest(rest)
		case "readnotif":
			deps.notify.MarkRead(rest)
		case "allow":
			deps.friends.AllowTrack(ctx, rest)
		case "disallow":
			deps.friends.DisallowTrack(ctx, rest)
		case "remove":
			deps.friends.Remove(ctx, rest, confirm(fmt.Sprintf("remove %s?", rest)))
		case "profile":
			deps.friends.LoadProfile(ctx)
		case "logout":
			if err := deps.client.Logout(ctx); err != nil {
				deps.console.printf("logout failed: %v\n", err)
				break
			}
			_ = deps.db.ClearAuth()
			deps.quit()
			return
		case "delete-account":
			if confirm("delete your account? this cannot be undone.")() {
				deps.notify.DeleteAccount(ctx, nil)
				deps.quit()
				return
			}
		case "quit", "exit":
			deps.quit()
			return
		default:
			deps.console.printf("unknown command %q, type 'help'\n", cmd)
		}
		deps.console.printf("> ")
	}
}

func parseCoords(s string) (float64, float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two coordinates")
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, err
	}
	long, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, long, nil
}
