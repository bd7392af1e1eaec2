// Command cli is an interactive console for the user service: CRUD over the
// HTTP API plus read-only views of the audit log and analytics counts.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Evgesha-thunder/user-service/pkg/config"
	"github.com/Evgesha-thunder/user-service/pkg/models"
)

// ANSI
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	White   = "\033[97m"
	Black   = "\033[30m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Red     = "\033[31m"
	Cyan    = "\033[36m"
	BgGreen = "\033[42m"
	BgRed   = "\033[41m"
	BgCyan  = "\033[46m"
)

type console struct {
	api     *apiClient
	audit   *inspector
	metrics *inspector
	in      *bufio.Scanner
	out     io.Writer
}

func main() {
	cfg := config.Load()

	c := &console{
		api:     newAPIClient(cfg.APIURL),
		audit:   openInspector("audit", config.LoadForService("AUDIT").DatabaseURL),
		metrics: openInspector("analytics", config.LoadForService("ANALYTICS").DatabaseURL),
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
	defer c.audit.Close()
	defer c.metrics.Close()

	clearScreen()
	printBanner(cfg.APIURL)
	c.shellLoop()
}

func (c *console) shellLoop() {
	for {
		fmt.Fprint(c.out, c.buildPrompt())

		if !c.in.Scan() {
			break
		}

		fields := strings.Fields(c.in.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Fprintf(c.out, "\n%s%s  Bye %s\n\n", BgCyan, Black, Reset)
			return

		case "help", "?":
			printHelp(c.out)

		case "clear", "cls":
			clearScreen()

		case "health", "h":
			c.printHealth()

		case "list", "users", "ls":
			c.listUsers()

		case "get", "find":
			c.getUser(args)

		case "create", "add":
			c.createUser(args)

		case "update", "edit":
			c.updateUser(args)

		case "delete", "rm":
			c.deleteUser(args)

		case "audit":
			c.audit.showAuditLog(c.out)

		case "metrics":
			c.metrics.showMetrics(c.out)

		default:
			fmt.Fprintf(c.out, "  %sunknown command %q, type 'help'%s\n", Red, cmd, Reset)
		}

		fmt.Fprintln(c.out)
	}
}

func (c *console) buildPrompt() string {
	bg, state := BgGreen, "online"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.api.health(ctx); err != nil {
		bg, state = BgRed, "offline"
	}
	return fmt.Sprintf("%s%s %s | %s %s\n%s>%s ", bg, Black, c.api.baseURL, state, Reset, Cyan, Reset)
}

func (c *console) printHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fmt.Fprintf(c.out, "  %s%sHealth%s\n", Bold, White, Reset)
	if err := c.api.health(ctx); err != nil {
		fmt.Fprintf(c.out, "  %s[-]%s %-12s %soffline%s %s\n", Red, Reset, "api", Red, Reset, err)
	} else {
		fmt.Fprintf(c.out, "  %s[+]%s %-12s %sok%s\n", Green, Reset, "api", Green, Reset)
	}
	for _, ins := range []*inspector{c.audit, c.metrics} {
		if ins.reachable() {
			fmt.Fprintf(c.out, "  %s[+]%s %-12s %sok%s\n", Green, Reset, ins.label+" db", Green, Reset)
		} else {
			fmt.Fprintf(c.out, "  %s[-]%s %-12s %soffline%s\n", Red, Reset, ins.label+" db", Red, Reset)
		}
	}
}

func (c *console) listUsers() {
	ctx, cancel := requestContext()
	defer cancel()

	users, err := c.api.listUsers(ctx)
	if err != nil {
		c.fail(err)
		return
	}
	if len(users) == 0 {
		fmt.Fprintf(c.out, "  %sno users%s\n", Dim, Reset)
		return
	}

	fmt.Fprintf(c.out, "  %s%-6s %-20s %-30s %4s  %s%s\n", Bold, "ID", "NAME", "EMAIL", "AGE", "CREATED", Reset)
	fmt.Fprintf(c.out, "  %s%s%s\n", Dim, strings.Repeat("-", 86), Reset)
	for _, u := range users {
		fmt.Fprintf(c.out, "  %-6d %-20s %-30s %4d  %s\n", u.ID, u.Name, u.Email, u.Age, u.CreatedAt.Format(time.RFC3339))
	}
}

func (c *console) getUser(args []string) {
	id, ok := c.readID(args)
	if !ok {
		return
	}
	ctx, cancel := requestContext()
	defer cancel()

	user, err := c.api.getUser(ctx, id)
	if err != nil {
		c.fail(err)
		return
	}
	printUser(c.out, user)
}

func (c *console) createUser(args []string) {
	in, ok := c.readInput(args)
	if !ok {
		return
	}
	ctx, cancel := requestContext()
	defer cancel()

	user, err := c.api.createUser(ctx, in)
	if err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintf(c.out, "  %s[ok] created%s\n", Green, Reset)
	printUser(c.out, user)
}

func (c *console) updateUser(args []string) {
	id, ok := c.readID(args)
	if !ok {
		return
	}
	if len(args) > 0 {
		args = args[1:]
	}
	in, ok := c.readInput(args)
	if !ok {
		return
	}
	ctx, cancel := requestContext()
	defer cancel()

	if err := c.api.updateUser(ctx, id, in); err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintf(c.out, "  %s[ok] updated user %d%s\n", Green, id, Reset)
}

func (c *console) deleteUser(args []string) {
	id, ok := c.readID(args)
	if !ok {
		return
	}
	ctx, cancel := requestContext()
	defer cancel()

	if err := c.api.deleteUser(ctx, id); err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintf(c.out, "  %s[ok] deleted user %d%s\n", Green, id, Reset)
}

// readID takes the id from args[0] or asks for it.
func (c *console) readID(args []string) (int64, bool) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	} else {
		raw = c.ask("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Fprintf(c.out, "  %s[x] id must be a number%s\n", Red, Reset)
		return 0, false
	}
	return id, true
}

// readInput takes name, email and age from args or asks for each of them.
func (c *console) readInput(args []string) (models.UserInput, bool) {
	if len(args) == 0 {
		args = []string{c.ask("name"), c.ask("email"), c.ask("age")}
	}
	in, err := parseInput(args)
	if err != nil {
		fmt.Fprintf(c.out, "  %s[x] %v%s\n", Red, err, Reset)
		return in, false
	}
	return in, true
}

func (c *console) ask(field string) string {
	fmt.Fprintf(c.out, "  %s%s:%s ", Dim, field, Reset)
	if !c.in.Scan() {
		return ""
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *console) fail(err error) {
	fmt.Fprintf(c.out, "  %s[x] %v%s\n", Red, err, Reset)
}

// parseInput reads "<name> <email> <age>". Field rules are left to the server.
func parseInput(args []string) (models.UserInput, error) {
	if len(args) != 3 {
		return models.UserInput{}, fmt.Errorf("usage: <name> <email> <age>")
	}
	age, err := strconv.Atoi(args[2])
	if err != nil {
		return models.UserInput{}, fmt.Errorf("age must be a number, got %q", args[2])
	}
	return models.UserInput{Name: args[0], Email: args[1], Age: age}, nil
}

func printUser(w io.Writer, u *models.UserDTO) {
	fmt.Fprintf(w, "  %sid:%s      %d\n", Dim, Reset, u.ID)
	fmt.Fprintf(w, "  %sname:%s    %s\n", Dim, Reset, u.Name)
	fmt.Fprintf(w, "  %semail:%s   %s\n", Dim, Reset, u.Email)
	fmt.Fprintf(w, "  %sage:%s     %d\n", Dim, Reset, u.Age)
	fmt.Fprintf(w, "  %screated:%s %s\n", Dim, Reset, u.CreatedAt.Format(time.RFC3339))
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%sCommands%s\n", Bold, White, Reset)
	fmt.Fprintf(w, "  %s--- Users ---%s\n", Dim, Reset)
	fmt.Fprintf(w, "  %slist%s                              list users\n", Green, Reset)
	fmt.Fprintf(w, "  %sget%s    <id>                       find user by id\n", Green, Reset)
	fmt.Fprintf(w, "  %screate%s <name> <email> <age>       create user\n", Green, Reset)
	fmt.Fprintf(w, "  %supdate%s <id> <name> <email> <age>  update user\n", Green, Reset)
	fmt.Fprintf(w, "  %sdelete%s <id>                       delete user\n", Green, Reset)
	fmt.Fprintf(w, "  %sMissing arguments are asked for.%s\n", Dim, Reset)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s--- Events ---%s\n", Dim, Reset)
	fmt.Fprintf(w, "  %saudit%s        audit log (last 20)\n", Green, Reset)
	fmt.Fprintf(w, "  %smetrics%s      daily counts (with bars)\n", Green, Reset)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %shealth%s  h    health checks\n", Green, Reset)
	fmt.Fprintf(w, "  %sclear%s        clear screen\n", Green, Reset)
	fmt.Fprintf(w, "  %sexit%s         quit\n", Green, Reset)
}

func printBanner(apiURL string) {
	fmt.Println()
	fmt.Printf("  %s%s>> User Service Console%s\n", Bold, Cyan, Reset)
	fmt.Printf("  %sTalking to %s. Type 'help' for commands%s\n", Dim, apiURL, Reset)
	fmt.Println()
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}
