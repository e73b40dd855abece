// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

//go:build integration

package postgres_test

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/lingopal/lingopal/internal/auth"
	"github.com/lingopal/lingopal/internal/auth/postgres"
)

func newUser(username string) *auth.User {
	user, err := auth.NewUser(username, username+"@example.com", "$argon2id$hash", auth.RoleLearner)
	Expect(err).NotTo(HaveOccurred())
	user.CreatedAt = user.CreatedAt.UTC().Truncate(time.Microsecond)
	user.UpdatedAt = user.CreatedAt
	return user
}

var _ = Describe("UserRepository", func() {
	var repo *postgres.UserRepository

	BeforeEach(func() {
		truncate()
		repo = postgres.NewUserRepository(testPool)
	})

	It("round-trips a user", func() {
		user := newUser("alice")
		Expect(repo.Create(suiteCtx, user)).To(Succeed())

		got, err := repo.GetByEmail(suiteCtx, "ALICE@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(user.ID))
		Expect(got.Contacts).To(BeEmpty())
		Expect(got.Contacts).NotTo(BeNil())
	})

	It("rejects duplicate email and username case-insensitively", func() {
		Expect(repo.Create(suiteCtx, newUser("alice"))).To(Succeed())

		dupName := newUser("ALICE")
		dupName.Email = "other@example.com"
		Expect(repo.Create(suiteCtx, dupName)).To(MatchError(auth.ErrDuplicateUsername))

		dupEmail := newUser("other")
		dupEmail.Email = "Alice@Example.com"
		Expect(repo.Create(suiteCtx, dupEmail)).To(MatchError(auth.ErrDuplicateEmail))
	})

	It("maintains contact and block lists", func() {
		user := newUser("alice")
		Expect(repo.Create(suiteCtx, user)).To(Succeed())

		Expect(repo.AddContact(suiteCtx, user.ID, "bob")).To(Succeed())
		Expect(repo.AddContact(suiteCtx, user.ID, "Bob")).To(Succeed())
		Expect(repo.AddContact(suiteCtx, user.ID, "carol")).To(Succeed())
		Expect(repo.Block(suiteCtx, user.ID, "bob")).To(Succeed())

		got, err := repo.GetByID(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Contacts).To(Equal([]string{"carol"}))
		Expect(got.BlockedUsers).To(Equal([]string{"bob"}))

		Expect(repo.Unblock(suiteCtx, user.ID, "BOB")).To(Succeed())
		Expect(repo.RemoveContact(suiteCtx, user.ID, "carol")).To(Succeed())
		got, err = repo.GetByID(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Contacts).To(BeEmpty())
		Expect(got.BlockedUsers).To(BeEmpty())
	})

	It("redeems a reset token exactly once under concurrency", func() {
		user := newUser("alice")
		Expect(repo.Create(suiteCtx, user)).To(Succeed())
		now := time.Now().UTC()
		Expect(repo.SetResetToken(suiteCtx, user.ID, "tokenhash", now.Add(time.Hour))).To(Succeed())

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				if _, err := repo.RedeemResetToken(suiteCtx, "tokenhash", "newhash", now); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				} else {
					Expect(err).To(MatchError(auth.ErrNotFound))
				}
			}()
		}
		wg.Wait()
		Expect(successes).To(Equal(1))

		got, err := repo.GetByID(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.PasswordHash).To(Equal("newhash"))
		Expect(got.ResetTokenHash).To(BeNil())
	})

	It("does not redeem expired reset tokens", func() {
		user := newUser("alice")
		Expect(repo.Create(suiteCtx, user)).To(Succeed())
		now := time.Now().UTC()
		Expect(repo.SetResetToken(suiteCtx, user.ID, "tokenhash", now.Add(-time.Minute))).To(Succeed())

		_, err := repo.RedeemResetToken(suiteCtx, "tokenhash", "newhash", now)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("lists users ordered by username", func() {
		for _, name := range []string{"carol", "alice", "Bob"} {
			Expect(repo.Create(suiteCtx, newUser(name))).To(Succeed())
		}
		users, err := repo.List(suiteCtx)
		Expect(err).NotTo(HaveOccurred())
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		Expect(names).To(Equal([]string{"alice", "Bob", "carol"}))
	})
})

var _ = Describe("SessionRepository", func() {
	var (
		users    *postgres.UserRepository
		sessions *postgres.SessionRepository
		owner    *auth.User
		now      time.Time
	)

	BeforeEach(func() {
		truncate()
		users = postgres.NewUserRepository(testPool)
		sessions = postgres.NewSessionRepository(testPool)
		owner = newUser("alice")
		Expect(users.Create(suiteCtx, owner)).To(Succeed())
		now = time.Now().UTC().Truncate(time.Microsecond)
	})

	create := func(keyHash string, expiresAt time.Time) *auth.Session {
		session, err := auth.NewSession(owner.ID, keyHash, owner.Snapshot(), now.Add(-time.Hour), expiresAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Create(suiteCtx, session)).To(Succeed())
		return session
	}

	It("stores and refreshes snapshots", func() {
		create("k1", now.Add(time.Hour))

		snap := owner.Snapshot()
		snap.LearningLanguages = []string{"Japanese"}
		Expect(sessions.UpdateData(suiteCtx, "k1", snap)).To(Succeed())

		got, err := sessions.GetByKeyHash(suiteCtx, "k1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Data.LearningLanguages).To(Equal([]string{"Japanese"}))
		Expect(got.ExpiresAt).To(BeTemporally("==", now.Add(time.Hour)))
	})

	It("removes expired sessions only", func() {
		create("dead", now.Add(-time.Minute))
		create("live", now.Add(time.Hour))

		n, err := sessions.DeleteExpired(suiteCtx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		_, err = sessions.GetByKeyHash(suiteCtx, "dead")
		Expect(err).To(MatchError(auth.ErrNotFound))
		_, err = sessions.GetByKeyHash(suiteCtx, "live")
		Expect(err).NotTo(HaveOccurred())
	})

	It("deletes every session of a user", func() {
		create("k1", now.Add(time.Hour))
		create("k2", now.Add(time.Hour))

		n, err := sessions.DeleteByUser(suiteCtx, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		n, err = sessions.DeleteByUser(suiteCtx, ulid.Make())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})
