package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

var (
	addr     = flag.String("addr", "localhost:8080", "http service address")
	room     = flag.String("room", "", "chat room id to join")
	username = flag.String("username", "", "username to connect as")
)

// Frame mirrors the server's duplex wire form.
type Frame struct {
	Username     string    `json:"username,omitempty"`
	Message      string    `json:"message"`
	ChatRoomName string    `json:"chatRoomName"`
	TimeSent     time.Time `json:"timeSent"`
}

func main() {
	flag.Parse()

	name := *username
	if name == "" {
		name = promptUsername()
	}
	if *room == "" {
		log.Fatal("a -room id is required")
	}

	conn := connectWebSocket(*room, name)
	defer conn.Close()

	// OS interrupt signals
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Start goroutine to listen for incoming messages
	done := make(chan struct{})
	go readMessages(conn, done)

	fmt.Println("Write Messages (Press Enter to Send):")
	writeMessages(conn, interrupt, done)
}

func promptUsername() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your username: ")
	scanner.Scan()
	return scanner.Text()
}

func connectWebSocket(room, username string) *websocket.Conn {
	u := url.URL{
		Scheme:   "ws",
		Host:     *addr,
		Path:     "/ws/message/" + room,
		RawQuery: "username=" + url.QueryEscape(username),
	}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	log.Println("Connected to WebSocket server.")
	return conn
}

func readMessages(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			log.Printf("Error reading message: %v", err)
			return
		}

		sender := frame.Username
		if sender == "" {
			sender = "System"
		}
		fmt.Printf("\n[%s] %s: %s\n", frame.TimeSent.Local().Format(time.Kitchen), sender, frame.Message)
	}
}

func writeMessages(conn *websocket.Conn, interrupt chan os.Signal, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		default:
			if scanner.Scan() {
				content := scanner.Text()
				if content == "" {
					continue
				}

				if err := conn.WriteJSON(Frame{Message: content}); err != nil {
					log.Printf("Error sending message: %v", err)
					return
				}
			}
		}
	}
}
