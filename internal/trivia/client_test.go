package trivia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":0,"response_message":"Token Generated Successfully!","token":"abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 10)
	token, err := c.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "abc123" {
		t.Fatalf("token = %q", token)
	}
}

func TestClientTokenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":3,"token":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 10)
	if _, err := c.Token(context.Background()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestClientQuestions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"response_code":0,"results":[
			{"category":"General Knowledge","type":"multiple","difficulty":"easy",
			 "question":"Q1","correct_answer":"A","incorrect_answers":["B","C","D"]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 10)
	questions, err := c.Questions(context.Background(), "tok42")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions", len(questions))
	}
	if questions[0].CorrectAnswer != "A" {
		t.Fatalf("correct answer = %q", questions[0].CorrectAnswer)
	}
	if gotQuery != "amount=10&token=tok42" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestClientQuestionsOmitsEmptyToken(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"response_code":0,"results":[
			{"category":"c","type":"boolean","difficulty":"easy",
			 "question":"q","correct_answer":"True","incorrect_answers":["False"]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 5)
	if _, err := c.Questions(context.Background(), ""); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if gotQuery != "amount=5" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestClientQuestionsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":4,"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 10)
	if _, err := c.Questions(context.Background(), "exhausted"); err == nil {
		t.Fatal("expected error for non-zero response code")
	}
}

func TestClientQuestionsEmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code":0,"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 10)
	if _, err := c.Questions(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty batch")
	}
}

func TestClientQuestionsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 10)
	if _, err := c.Questions(context.Background(), ""); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
