// Package cli contains the terminal commands: the interactive library
// console and user management.
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/akowalski/bibliotek/internal/auth"
	"github.com/akowalski/bibliotek/internal/circulation"
	"github.com/akowalski/bibliotek/internal/config"
	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/database/books"
	"github.com/akowalski/bibliotek/internal/database/categories"
	"github.com/akowalski/bibliotek/internal/database/loans"
	"github.com/akowalski/bibliotek/internal/database/reservations"
	"github.com/akowalski/bibliotek/internal/entities"
)

// ConsoleCommand runs the interactive library console against a local
// database file.
type ConsoleCommand struct {
	DatabasePath string

	db           *database.Database
	books        *books.Repository
	categories   *categories.Repository
	loans        *loans.Repository
	reservations *reservations.Repository
	circulation  *circulation.Service
	authService  *auth.Service

	user  *entities.User
	in    *bufio.Scanner
	stdin *os.File
}

// NewConsoleCommand creates a new ConsoleCommand.
func NewConsoleCommand() *ConsoleCommand {
	return &ConsoleCommand{}
}

// ParseFlags parses command line flags.
func (cmd *ConsoleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("console", flag.ExitOnError)
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s console [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run the interactive library console.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run opens the database and drives the login and menu loop until the
// user exits.
func (cmd *ConsoleCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cmd.db = db
	cmd.books = books.NewRepository(db.DB)
	cmd.categories = categories.NewRepository(db.DB)
	cmd.loans = loans.NewRepository(db.DB)
	cmd.reservations = reservations.NewRepository(db.DB)
	cmd.circulation = circulation.NewService(db.DB, cmd.books, cmd.loans, cmd.reservations)
	cmd.authService = auth.NewService(db.DB, cfg.Auth)
	cmd.in = bufio.NewScanner(os.Stdin)
	cmd.stdin = os.Stdin

	if err := cmd.authService.EnsureAdmin(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	fmt.Println("=== Bibliotek ===")
	if err := cmd.login(); err != nil {
		return err
	}
	cmd.showPickups()

	for {
		cmd.printMenu()
		choice := cmd.prompt("> ")
		if !cmd.dispatch(choice) {
			fmt.Println("Goodbye.")
			return nil
		}
	}
}

func (cmd *ConsoleCommand) login() error {
	for {
		username := cmd.prompt("Username: ")
		password, err := cmd.promptPassword("Password: ")
		if err != nil {
			return err
		}

		user, err := cmd.authService.Authenticate(username, password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountLocked):
				fmt.Println("Account locked, try again later.")
			default:
				fmt.Println("Invalid credentials.")
			}
			continue
		}

		cmd.user = user
		fmt.Printf("Welcome, %s!\n", displayName(user))
		return nil
	}
}

// showPickups lists books currently held for the logged-in reader.
func (cmd *ConsoleCommand) showPickups() {
	held, err := cmd.books.ReservedForUser(cmd.user.ID)
	if err != nil || len(held) == 0 {
		return
	}

	fmt.Println("\nReady for pickup:")
	for _, book := range held {
		fmt.Printf("  [%d] %s by %s\n", book.ID, book.Title, book.Author)
	}
}

func (cmd *ConsoleCommand) printMenu() {
	fmt.Println("\n--- Menu ---")
	fmt.Println(" 1. List all books")
	fmt.Println(" 2. Search books")
	fmt.Println(" 3. Advanced search")
	fmt.Println(" 4. Browse by category")
	fmt.Println(" 5. My loans")
	fmt.Println(" 6. My reservations")
	fmt.Println(" 7. Check out a book")
	fmt.Println(" 8. Return a book")
	fmt.Println(" 9. Reserve a book")
	if cmd.isAdmin() {
		fmt.Println("10. Add book (admin)")
		fmt.Println("11. Delete book (admin)")
		fmt.Println("12. Add category (admin)")
		fmt.Println("13. Delete category (admin)")
		fmt.Println("14. Statistics (admin)")
	}
	fmt.Println(" 0. Exit")
}

// dispatch runs the selected menu item; returns false to exit.
func (cmd *ConsoleCommand) dispatch(choice string) bool {
	switch strings.TrimSpace(choice) {
	case "1":
		cmd.listBooks()
	case "2":
		cmd.searchBooks()
	case "3":
		cmd.advancedSearch()
	case "4":
		cmd.browseByCategory()
	case "5":
		cmd.myLoans()
	case "6":
		cmd.myReservations()
	case "7":
		cmd.checkout()
	case "8":
		cmd.returnBook()
	case "9":
		cmd.reserve()
	case "10":
		cmd.adminOnly(cmd.addBook)
	case "11":
		cmd.adminOnly(cmd.deleteBook)
	case "12":
		cmd.adminOnly(cmd.addCategory)
	case "13":
		cmd.adminOnly(cmd.deleteCategory)
	case "14":
		cmd.adminOnly(cmd.statistics)
	case "0", "q", "exit":
		return false
	default:
		fmt.Println("Unknown option.")
	}
	return true
}

func (cmd *ConsoleCommand) isAdmin() bool {
	return cmd.user != nil && cmd.user.Role == entities.UserRoleAdmin
}

func (cmd *ConsoleCommand) adminOnly(action func()) {
	if !cmd.isAdmin() {
		fmt.Println("Admin access required.")
		return
	}
	action()
}

func (cmd *ConsoleCommand) listBooks() {
	all, err := cmd.books.GetAll()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	printBooks(all)
}

func (cmd *ConsoleCommand) searchBooks() {
	query := cmd.prompt("Search (title or author): ")
	if query == "" {
		return
	}
	found, err := cmd.books.Search(query)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	printBooks(found)
}

func (cmd *ConsoleCommand) advancedSearch() {
	criteria := books.SearchCriteria{
		Title:    cmd.prompt("Title (empty to skip): "),
		Author:   cmd.prompt("Author (empty to skip): "),
		Year:     cmd.promptInt("Year (0 to skip): "),
		SortBy:   cmd.prompt("Sort by [title/author/publication_year]: "),
		PageSize: 5,
		Page:     1,
	}

	for {
		found, err := cmd.books.SearchAdvanced(criteria)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		total, err := cmd.books.Count(criteria)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		if total == 0 {
			fmt.Println("No books found.")
			return
		}

		totalPages := int((total + int64(criteria.PageSize) - 1) / int64(criteria.PageSize))
		fmt.Printf("\nPage %d/%d (%d books)\n", criteria.Page, totalPages, total)
		printBooks(found)

		if totalPages <= 1 {
			return
		}
		nav := cmd.prompt("[n]ext, [p]revious, [q]uit: ")
		switch nav {
		case "n":
			if criteria.Page < totalPages {
				criteria.Page++
			}
		case "p":
			if criteria.Page > 1 {
				criteria.Page--
			}
		default:
			return
		}
	}
}

func (cmd *ConsoleCommand) browseByCategory() {
	all, err := cmd.categories.GetAll()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, category := range all {
		fmt.Printf("  [%d] %s\n", category.ID, category.Name)
	}

	id := cmd.promptID("Category id: ")
	if id == 0 {
		return
	}
	found, err := cmd.books.GetByCategory(id)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	printBooks(found)
}

func (cmd *ConsoleCommand) myLoans() {
	active, err := cmd.loans.ActiveByUser(cmd.user.ID)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(active) == 0 {
		fmt.Println("No open loans.")
		return
	}
	for _, loan := range active {
		fmt.Printf("  book [%d] since %s\n", loan.BookID, loan.LoanDate.Format("2006-01-02"))
	}
}

func (cmd *ConsoleCommand) myReservations() {
	mine, err := cmd.reservations.ByUser(cmd.user.ID)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(mine) == 0 {
		fmt.Println("No reservations.")
		return
	}
	for _, reservation := range mine {
		fmt.Printf("  [%d] %s (reserved %s)\n",
			reservation.BookID, reservation.Book.Title,
			reservation.ReservationDate.Format("2006-01-02"))
	}
	cmd.showPickups()
}

func (cmd *ConsoleCommand) checkout() {
	bookID := cmd.promptID("Book id to check out: ")
	if bookID == 0 {
		return
	}
	cmd.reportCirculation(cmd.circulation.Checkout(cmd.user.ID, bookID), "Checked out.")
}

func (cmd *ConsoleCommand) returnBook() {
	bookID := cmd.promptID("Book id to return: ")
	if bookID == 0 {
		return
	}
	cmd.reportCirculation(cmd.circulation.Return(cmd.user.ID, bookID), "Returned.")
}

func (cmd *ConsoleCommand) reserve() {
	bookID := cmd.promptID("Book id to reserve: ")
	if bookID == 0 {
		return
	}
	cmd.reportCirculation(cmd.circulation.Reserve(cmd.user.ID, bookID), "Reserved.")
}

func (cmd *ConsoleCommand) reportCirculation(err error, success string) {
	switch {
	case err == nil:
		fmt.Println(success)
	case errors.Is(err, circulation.ErrBookNotFound):
		fmt.Println("No such book.")
	case errors.Is(err, circulation.ErrAlreadyLoaned):
		fmt.Println("That book is already loaned out.")
	case errors.Is(err, circulation.ErrReservedForOther):
		fmt.Println("That book is being held for another reader.")
	case errors.Is(err, circulation.ErrNotLoanedByUser):
		fmt.Println("You have no open loan for that book.")
	case errors.Is(err, circulation.ErrNotReservable):
		fmt.Println("Only loaned books can be reserved.")
	default:
		fmt.Println("Error:", err)
	}
}

func (cmd *ConsoleCommand) addBook() {
	book := &entities.Book{
		Title:           cmd.prompt("Title: "),
		Author:          cmd.prompt("Author: "),
		PublicationYear: cmd.promptInt("Publication year: "),
		ISBN:            cmd.prompt("ISBN (empty to skip): "),
		CategoryID:      cmd.promptID("Category id (0 to skip): "),
	}
	if book.Title == "" || book.Author == "" {
		fmt.Println("Title and author are required.")
		return
	}
	if err := cmd.books.Create(book); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Added book [%d].\n", book.ID)
}

func (cmd *ConsoleCommand) deleteBook() {
	bookID := cmd.promptID("Book id to delete: ")
	if bookID == 0 {
		return
	}
	if err := cmd.books.Delete(bookID); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Deleted.")
}

func (cmd *ConsoleCommand) addCategory() {
	name := cmd.prompt("Category name: ")
	if name == "" {
		return
	}
	category, err := cmd.categories.Create(name)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Added category [%d].\n", category.ID)
}

func (cmd *ConsoleCommand) deleteCategory() {
	id := cmd.promptID("Category id to delete: ")
	if id == 0 {
		return
	}
	err := cmd.categories.Delete(id)
	switch {
	case err == nil:
		fmt.Println("Deleted.")
	case errors.Is(err, categories.ErrInUse):
		fmt.Println("Category still has books assigned.")
	case errors.Is(err, categories.ErrNotFound):
		fmt.Println("No such category.")
	default:
		fmt.Println("Error:", err)
	}
}

func (cmd *ConsoleCommand) statistics() {
	total, err := cmd.books.CountAll()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("\nBooks in catalog: %d\n", total)
	for _, status := range []entities.BookStatus{
		entities.BookStatusAvailable,
		entities.BookStatusLoaned,
		entities.BookStatusReserved,
	} {
		count, err := cmd.books.CountByStatus(status)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("  %-10s %d\n", status, count)
	}

	mostLoaned, err := cmd.loans.MostLoaned(5)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(mostLoaned) > 0 {
		fmt.Println("Most loaned:")
		for i, entry := range mostLoaned {
			fmt.Printf("  %d. %s (%d loans)\n", i+1, entry.Title, entry.LoanCount)
		}
	}
}

// --- input helpers ---

func (cmd *ConsoleCommand) prompt(label string) string {
	fmt.Print(label)
	if !cmd.in.Scan() {
		return ""
	}
	return strings.TrimSpace(cmd.in.Text())
}

// promptPassword reads a password without echoing when stdin is a
// terminal, falling back to plain reads otherwise (tests, pipes).
func (cmd *ConsoleCommand) promptPassword(label string) (string, error) {
	fd := int(cmd.stdin.Fd())
	if !term.IsTerminal(fd) {
		return cmd.prompt(label), nil
	}

	fmt.Print(label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (cmd *ConsoleCommand) promptInt(label string) int {
	value, err := strconv.Atoi(cmd.prompt(label))
	if err != nil {
		return 0
	}
	return value
}

func (cmd *ConsoleCommand) promptID(label string) uint {
	value := cmd.promptInt(label)
	if value < 0 {
		return 0
	}
	return uint(value)
}

func displayName(user *entities.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		return user.Username
	}
	return name
}

func printBooks(found []entities.Book) {
	if len(found) == 0 {
		fmt.Println("No books found.")
		return
	}
	for _, book := range found {
		line := fmt.Sprintf("  [%d] %s by %s", book.ID, book.Title, book.Author)
		if book.PublicationYear > 0 {
			line += fmt.Sprintf(" (%d)", book.PublicationYear)
		}
		line += " [" + string(book.Status) + "]"
		fmt.Println(line)
	}
}
