package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"indiehub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type gameListResponse struct {
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Items  []models.GameDB `json:"items"`
}

func main() {
	global := flag.NewFlagSet("indiehub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "games":
		handleGames(ctx, client, *baseURL, sub, args[2:])
	case "favorites":
		handleFavorites(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "recommend":
		handleRecommend(ctx, client, *baseURL, *tokenPath, args[1:])
	case "review":
		handleReview(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "budget":
		handleBudget(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "watch":
		handleWatch(sub, args[2:])
	case "notify":
		handleNotify(*baseURL, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: indiehub auth <login|register|logout>")
	}
}

func handleGames(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("games search", flag.ExitOnError)
		query := fs.String("q", "", "search query")
		genres := fs.String("genres", "", "comma-separated genres")
		maxPrice := fs.String("max-price", "", "price ceiling")
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/games")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *query != "" {
			qv.Set("q", *query)
		}
		if *genres != "" {
			qv.Set("genres", *genres)
		}
		if *maxPrice != "" {
			qv.Set("max_price", *maxPrice)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp gameListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("games show", flag.ExitOnError)
		id := fs.String("id", "", "game id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("game id is required")
		}

		var resp models.GameDB
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/games/"+url.PathEscape(*id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "gems":
		fs := flag.NewFlagSet("games gems", flag.ExitOnError)
		minRating := fs.String("min-rating", "", "minimum average rating")
		maxReviews := fs.String("max-reviews", "", "maximum review count")
		limit := fs.Int("limit", 20, "page size")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/games/hidden-gems")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		if *minRating != "" {
			qv.Set("min_rating", *minRating)
		}
		if *maxReviews != "" {
			qv.Set("max_reviews", *maxReviews)
		}
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("gems failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: indiehub games <search|show|gems>")
	}
}

func handleFavorites(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "add":
		fs := flag.NewFlagSet("favorites add", flag.ExitOnError)
		gameID := fs.String("game-id", "", "game id")
		_ = fs.Parse(args)
		if *gameID == "" {
			log.Fatal("game-id is required")
		}

		payload := map[string]any{"game_id": *gameID}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/favorites", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "remove":
		fs := flag.NewFlagSet("favorites remove", flag.ExitOnError)
		gameID := fs.String("game-id", "", "game id")
		_ = fs.Parse(args)
		if *gameID == "" {
			log.Fatal("game-id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/users/favorites/"+url.PathEscape(*gameID), token, nil, &resp); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		printJSON(resp)
	case "list":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/favorites", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: indiehub favorites <add|remove|list>")
	}
}

func handleRecommend(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	token := mustToken(tokenPath)

	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	limit := fs.Int("limit", 10, "how many recommendations")
	maxPrice := fs.String("max-price", "", "price ceiling override")
	shuffle := fs.Bool("shuffle", false, "randomize tie ordering")
	_ = fs.Parse(args)

	u, err := url.Parse(baseURL + "/users/recommendations")
	if err != nil {
		log.Fatalf("invalid base url: %v", err)
	}
	qv := u.Query()
	qv.Set("limit", fmt.Sprintf("%d", *limit))
	if *maxPrice != "" {
		qv.Set("max_price", *maxPrice)
	}
	if *shuffle {
		qv.Set("shuffle", "1")
	}
	u.RawQuery = qv.Encode()

	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
		log.Fatalf("recommend failed: %v", err)
	}
	printJSON(resp)
}

func handleReview(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "add":
		fs := flag.NewFlagSet("review add", flag.ExitOnError)
		gameID := fs.String("game-id", "", "game id")
		rating := fs.Int("rating", 0, "rating 1-5")
		comment := fs.String("comment", "", "review text")
		_ = fs.Parse(args)
		if *gameID == "" {
			log.Fatal("game-id is required")
		}
		if *rating < 1 || *rating > 5 {
			log.Fatal("rating must be between 1 and 5")
		}

		payload := map[string]any{
			"game_id": *gameID,
			"rating":  *rating,
			"comment": *comment,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/reviews", token, payload, &resp); err != nil {
			log.Fatalf("review failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("review delete", flag.ExitOnError)
		id := fs.String("id", "", "review id")
		_ = fs.Parse(args)
		if *id == "" {
			log.Fatal("review id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/users/reviews/"+url.PathEscape(*id), token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: indiehub review <add|delete>")
	}
}

func handleBudget(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "set":
		fs := flag.NewFlagSet("budget set", flag.ExitOnError)
		maxPrice := fs.Float64("max-price", -1, "spending ceiling")
		_ = fs.Parse(args)
		if *maxPrice < 0 {
			log.Fatal("max-price must be >= 0")
		}

		payload := map[string]any{"max_price": *maxPrice}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPut, baseURL+"/users/max-price", token, payload, &resp); err != nil {
			log.Fatalf("set failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: indiehub budget set")
	}
}

func handleWatch(sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("watch listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP live feed address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runWatchTCP(*addr, *pretty); err != nil {
				log.Printf("[watch] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: indiehub watch listen")
	}
}

func handleNotify(baseURL, sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	case "register":
		fs := flag.NewFlagSet("notify register", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9090", "UDP alert server address")
		userID := fs.String("user-id", "", "user id to register")
		genres := fs.String("genres", "", "comma-separated genre filter (empty = all)")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user-id is required")
		}
		if err := runNotifyUDP(*addr, *userID, *genres); err != nil {
			log.Fatalf("notify register failed: %v", err)
		}
	default:
		log.Fatal("usage: indiehub notify <subscribe|register>")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/games.json", "output JSON path")
		limit := fs.Int("limit", 200, "max games to export")
		_ = fs.Parse(args)

		items, err := fetchGames(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d games to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/games.csv", "output CSV path")
		limit := fs.Int("limit", 200, "max games to export")
		_ = fs.Parse(args)

		items, err := fetchGames(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d games to %s", len(items), *out)
	default:
		log.Fatal("usage: indiehub export <json|csv>")
	}
}

func runWatchTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[watch] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[notify] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

// runNotifyUDP registers with the alert server and then prints every
// datagram it pushes back.
func runNotifyUDP(addr, userID, genres string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg := map[string]any{"type": "register", "user_id": userID}
	if genres != "" {
		var list []string
		for _, g := range strings.Split(genres, ",") {
			if g = strings.TrimSpace(g); g != "" {
				list = append(list, g)
			}
		}
		reg["genres"] = list
	}
	payload, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return err
	}

	log.Printf("[notify] registered %s at %s, waiting for alerts", userID, addr)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
}

func fetchGames(ctx context.Context, client *http.Client, baseURL string, limit int) ([]models.GameDB, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.GameDB
	offset := 0
	for len(out) < limit {
		pageSize := 50
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		u, err := url.Parse(baseURL + "/games")
		if err != nil {
			return nil, err
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", pageSize))
		qv.Set("offset", fmt.Sprintf("%d", offset))
		u.RawQuery = qv.Encode()

		var resp gameListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			break
		}
		out = append(out, resp.Items...)
		offset += len(resp.Items)
		if offset >= resp.Total {
			break
		}
	}

	return out, nil
}

func writeJSON(path string, items []models.GameDB) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.GameDB) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "name", "url", "price", "genres", "tags", "publishers", "description",
	}); err != nil {
		return err
	}
	for _, item := range items {
		price := ""
		if item.Price != nil {
			price = fmt.Sprintf("%.2f", *item.Price)
		}
		if err := writer.Write([]string{
			item.ID,
			item.Name,
			item.URL,
			price,
			strings.Join(item.Genres, ","),
			strings.Join(item.Tags, ","),
			strings.Join(item.Publishers, ","),
			item.Description,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.indiehub-token.json"
	}
	return filepath.Join(home, ".indiehub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("indiehub <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  games search|show|gems")
	fmt.Println("  favorites add|remove|list")
	fmt.Println("  recommend [-limit N] [-max-price X] [-shuffle]")
	fmt.Println("  review add|delete")
	fmt.Println("  budget set")
	fmt.Println("  watch listen")
	fmt.Println("  notify subscribe|register")
	fmt.Println("  export json|csv")
}
